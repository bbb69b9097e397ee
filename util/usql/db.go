// Package usql wraps database/sql so that every statement, begin and commit is
// timed under the "SQL" gocore stat, keyed by the statement text.
package usql

import (
	"context"
	"database/sql"
	"time"

	"github.com/ordishs/gocore"
)

var stat = gocore.NewStat("SQL")

func record(key string, start time.Time) {
	stat.NewStat(key).AddTime(start)
}

type DB struct {
	*sql.DB
}

func Open(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db}, nil
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer record(query, gocore.CurrentTime())
	return db.DB.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer record(query, gocore.CurrentTime())
	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer record(query, gocore.CurrentTime())
	return db.DB.ExecContext(ctx, query, args...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	defer record("BEGIN", gocore.CurrentTime())

	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Tx{Tx: tx}, nil
}

// Tx times its statements under the same stat as DB.
type Tx struct {
	*sql.Tx
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer record(query, gocore.CurrentTime())
	return tx.Tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer record(query, gocore.CurrentTime())
	return tx.Tx.QueryRowContext(ctx, query, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer record(query, gocore.CurrentTime())
	return tx.Tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) Commit() error {
	defer record("COMMIT", gocore.CurrentTime())
	return tx.Tx.Commit()
}
