package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/worktoolai/taskai/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (plans, tasks, task_edges, documents, history)
const currentSchemaVersion = 1

// DefaultLockTimeout bounds how long a transaction waits for the writer
// lock before failing with LockTimeout.
const DefaultLockTimeout = 5 * time.Second

// Store provides durable, transactional storage for the task graph.
// Uses SQLite with WAL mode: writers are serialized by an exclusive lock,
// readers see the last committed snapshot without blocking.
type Store struct {
	db *sql.DB
}

type options struct {
	lockTimeout time.Duration
}

// Option configures Open.
type Option func(*options)

// WithLockTimeout overrides the bounded wait for the writer lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// Open creates or opens the store at the given path.
//
// A path with no store yet is initialized with an empty schema. A store
// written by an incompatible schema version fails with SchemaMismatch
// rather than silently migrating.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - busy_timeout for bounded lock waits (LockTimeout past it)
//   - Foreign key enforcement
//   - BEGIN IMMEDIATE transactions (writer lock taken up front)
func Open(path string, opts ...Option) (*Store, error) {
	o := options{lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=%d",
		path, o.lockTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// keeps transaction state attached to the connection that began it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs a read against the last committed snapshot. Callers must
// close the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read against the last committed snapshot.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// Begin starts a write transaction, acquiring the exclusive writer lock up
// front (BEGIN IMMEDIATE). If another process holds the lock past the
// configured timeout, Begin fails with LockTimeout.
func (s *Store) Begin(ctx context.Context) (*Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapLockErr(err)
	}
	return &Txn{tx: tx}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// checkSchema initializes a fresh store or verifies the recorded schema
// version of an existing one.
func checkSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version == currentSchemaVersion {
		return nil
	}

	if version != 0 {
		return model.ErrSchemaMismatch(version, currentSchemaVersion)
	}

	// user_version 0 is either a brand-new database or a store written
	// before versions were stamped; only the former is initialized.
	var tables int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'plans'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if tables != 0 {
		return model.ErrSchemaMismatch(version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// mapLockErr converts SQLITE_BUSY into the core's LockTimeout error;
// anything else passes through wrapped.
func mapLockErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return model.ErrLockTimeout()
		}
	}
	return fmt.Errorf("begin transaction: %w", err)
}
