// Package sql provides a SQL-based implementation of the ledger store interface.
// It supports both PostgreSQL and SQLite backends with automatic schema creation.
//
// # Usage
//
//	store, err := sql.New(ctx, logger, settings, &url.URL{
//	    Scheme: "postgres",
//	    Host:   "localhost:5432",
//	    User:   url.UserPassword("ledger", "ledger"),
//	    Path:   "ledger",
//	})
//
// # Locking
//
// On postgres exclusive row locks are taken with SELECT ... FOR UPDATE. SQLite
// has no row locks; every write transaction begins IMMEDIATE and so holds the
// database write lock from its first statement.
//
// # Database Schema
//
// The store uses the following tables:
//   - accounts: balances and deposit addresses
//   - items: listings with an owner and a price
//   - tokens: at most one per item, carries the current owner
//   - ledger_entries: append-only settlement records
//   - notifications: append-only messages per account
//
// # Metrics
//
// The following Prometheus metrics are exposed:
//   - nomadledger_sql_ledger_update: Number of write transactions
//   - nomadledger_sql_ledger_view: Number of read transactions
//   - nomadledger_sql_ledger_errors: Number of errors by function and type
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/nomadmarket/nomadledger/util"
	"github.com/nomadmarket/nomadledger/util/usql"
)

type Store struct {
	reader
	logger    ulogger.Logger
	db        *usql.DB
	dbTimeout time.Duration
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	logger = logger.New("ledger")

	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	switch engine {
	case util.Postgres:
		if err = createPostgresSchema(ctx, db); err != nil {
			return nil, errors.NewStorageError("failed to create postgres schema", err)
		}

	case util.Sqlite, util.SqliteMemory:
		if err = createSqliteSchema(ctx, db); err != nil {
			return nil, errors.NewStorageError("failed to create sqlite schema", err)
		}

	default:
		return nil, errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	return newStore(logger, db, engine, tSettings.Ledger.DBTimeout), nil
}

func newStore(logger ulogger.Logger, db *usql.DB, engine util.SQLEngine, dbTimeout time.Duration) *Store {
	initPrometheusMetrics()

	if dbTimeout <= 0 {
		dbTimeout = 5 * time.Second
	}

	return &Store{
		reader:    reader{q: db, engine: engine},
		logger:    logger,
		db:        db,
		dbTimeout: dbTimeout,
	}
}

func (s *Store) Health(ctx context.Context, _ bool) (int, string, error) {
	details := fmt.Sprintf("SQL Engine is %s", s.engine)

	var num int

	err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&num)
	if err != nil {
		return http.StatusServiceUnavailable, details, err
	}

	return http.StatusOK, details, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn inside one transaction. The transaction is committed only if fn
// returns nil; any error, including a failed commit, leaves no effect behind.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) (err error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	prometheusLedgerUpdate.Inc()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		prometheusLedgerErrors.WithLabelValues("Update", "begin").Inc()
		return storageError("failed to begin transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = fn(&sqlTx{reader: reader{q: txn, engine: s.engine}}); err != nil {
		if errors.IsInternalError(err) {
			prometheusLedgerErrors.WithLabelValues("Update", "callback").Inc()
		}

		return err
	}

	if err = txn.Commit(); err != nil {
		prometheusLedgerErrors.WithLabelValues("Update", "commit").Inc()
		return storageError("failed to commit transaction", err)
	}

	return nil
}

// View runs fn inside a read-only snapshot so that a concurrent settlement is
// observed either completely or not at all.
func (s *Store) View(ctx context.Context, fn func(r ledger.Reader) error) error {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	prometheusLedgerView.Inc()

	var opts *sql.TxOptions

	if s.engine == util.Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	txn, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		prometheusLedgerErrors.WithLabelValues("View", "begin").Inc()
		return storageError("failed to begin read transaction", err)
	}

	defer func() {
		_ = txn.Rollback()
	}()

	if err = fn(reader{q: txn, engine: s.engine}); err != nil {
		return err
	}

	if err = txn.Commit(); err != nil {
		prometheusLedgerErrors.WithLabelValues("View", "commit").Inc()
		return errors.NewStorageError("failed to end read transaction", err)
	}

	return nil
}
