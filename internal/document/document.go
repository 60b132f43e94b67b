// Package document stores versioned free-text attachments on plans and
// tasks. Every put creates a new immutable revision; earlier revisions
// stay fetchable forever. Content is opaque to the core.
package document

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// Store reads and writes document revisions. Persistence and transactions
// are delegated to the storage engine; every put is logged through the
// history log inside the same transaction.
type Store struct {
	st  *store.Store
	log *history.Log
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a document store over st.
func New(st *store.Store, log *history.Log, opts ...Option) *Store {
	s := &Store{st: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put writes a new revision for the owner and returns its revision number.
// The owner (plan or task) must exist; revisions are never overwritten.
func (s *Store) Put(ctx context.Context, owner model.OwnerKind, ownerID, title, content string) (int64, error) {
	var revision int64
	txn, err := s.st.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	planID, err := ownerPlanID(ctx, txn, owner, ownerID)
	if err != nil {
		return 0, err
	}

	err = txn.QueryRow(ctx,
		"SELECT COALESCE(MAX(revision), 0) FROM documents WHERE owner_kind = ? AND owner_id = ?",
		string(owner), ownerID).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("next document revision: %w", err)
	}
	revision++

	now := s.now()
	_, err = txn.Exec(ctx, `
		INSERT INTO documents (owner_kind, owner_id, revision, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(owner), ownerID, revision, title, content, model.FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}

	after, err := history.Summary(map[string]any{
		"owner":    string(owner),
		"revision": revision,
		"title":    title,
	})
	if err != nil {
		return 0, err
	}
	entry := &model.HistoryEntry{
		Timestamp:  now,
		EntityKind: model.EntityDocument,
		EntityID:   ownerID,
		PlanID:     planID,
		Op:         "put_document",
		After:      after,
	}
	if err := s.log.Append(ctx, txn, entry); err != nil {
		return 0, err
	}

	if err := txn.Commit(); err != nil {
		return 0, err
	}
	return revision, nil
}

// Get fetches one revision for the owner. A revision of zero or less means
// the latest.
func (s *Store) Get(ctx context.Context, owner model.OwnerKind, ownerID string, revision int64) (*model.Document, error) {
	query := `
		SELECT owner_kind, owner_id, revision, title, content, created_at
		FROM documents
		WHERE owner_kind = ? AND owner_id = ?
	`
	args := []any{string(owner), ownerID}
	if revision > 0 {
		query += " AND revision = ?"
		args = append(args, revision)
	} else {
		query += " ORDER BY revision DESC LIMIT 1"
	}

	row := s.st.QueryRow(ctx, query, args...)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrDocumentNotFound(ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns every revision for the owner, oldest first.
func (s *Store) List(ctx context.Context, owner model.OwnerKind, ownerID string) ([]model.Document, error) {
	rows, err := s.st.Query(ctx, `
		SELECT owner_kind, owner_id, revision, title, content, created_at
		FROM documents
		WHERE owner_kind = ? AND owner_id = ?
		ORDER BY revision ASC
	`, string(owner), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*model.Document, error) {
	var d model.Document
	var kind, created string
	if err := row.Scan(&kind, &d.OwnerID, &d.Revision, &d.Title, &d.Content, &created); err != nil {
		return nil, err
	}
	d.Owner = model.OwnerKind(kind)
	parsed, err := model.ParseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parse document created_at: %w", err)
	}
	d.CreatedAt = parsed
	return &d, nil
}

// ownerPlanID verifies the owner exists and returns the plan the history
// entry should be attributed to.
func ownerPlanID(ctx context.Context, txn *store.Txn, owner model.OwnerKind, ownerID string) (string, error) {
	switch owner {
	case model.OwnerPlan:
		var id string
		err := txn.QueryRow(ctx, "SELECT id FROM plans WHERE id = ?", ownerID).Scan(&id)
		if err == sql.ErrNoRows {
			return "", model.ErrPlanNotFound(ownerID)
		}
		if err != nil {
			return "", fmt.Errorf("check plan: %w", err)
		}
		return id, nil
	case model.OwnerTask:
		var planID string
		err := txn.QueryRow(ctx, "SELECT plan_id FROM tasks WHERE id = ?", ownerID).Scan(&planID)
		if err == sql.ErrNoRows {
			return "", model.ErrTaskNotFound(ownerID)
		}
		if err != nil {
			return "", fmt.Errorf("check task: %w", err)
		}
		return planID, nil
	default:
		return "", model.Errf(model.CodeValidation, "unknown document owner kind %q", owner)
	}
}
