package sql

import (
	"github.com/lib/pq"
	"github.com/nomadmarket/nomadledger/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	return false
}

// isTransient reports whether the database aborted the transaction because of
// contention. Nothing was written, so the whole transaction can be run again.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return true
		}

		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// primary result code, without the extended bits
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return false
}

// storageError wraps a driver error as ERR_STORAGE_UNAVAILABLE when it is
// transient and as ERR_STORAGE_ERROR otherwise. The last param must be the error.
func storageError(message string, params ...interface{}) error {
	if len(params) > 0 {
		if err, ok := params[len(params)-1].(error); ok && isTransient(err) {
			return errors.NewStorageUnavailableError(message, params...)
		}
	}

	return errors.NewStorageError(message, params...)
}
