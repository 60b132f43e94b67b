package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/worktoolai/taskai/internal/model"
)

// Txn is a single write transaction. All writes within it commit or roll
// back as a unit; the writer lock is held for its duration.
type Txn struct {
	tx   *sql.Tx
	done bool
}

// Exec runs a statement inside the transaction.
func (t *Txn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query runs a read inside the transaction, observing its own
// uncommitted writes.
func (t *Txn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read inside the transaction.
func (t *Txn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Commit makes the transaction's writes durable.
func (t *Txn) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && (serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked) {
			return model.ErrLockTimeout()
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes. Safe to call after Commit;
// the usual pattern is `defer txn.Rollback()`.
func (t *Txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
