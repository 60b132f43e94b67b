// Package graph implements the validated mutation API over plans, tasks
// and dependency edges.
//
// Every public mutation runs inside a single store transaction: it
// validates against stored state, writes, appends exactly one history
// entry per accepted mutation, and commits, or rolls the whole unit back.
// The central invariant is that the dependency graph of every plan is
// acyclic at every committed snapshot.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// Store validates and applies graph mutations.
type Store struct {
	st    *store.Store
	log   *history.Log
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the timestamp source. Tests use a deterministic clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator injects the identifier source. The default is UUIDv7,
// which embeds a timestamp in the most significant bits so identifiers
// sort by creation time.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a graph store over st, logging every accepted mutation to log.
func New(st *store.Store, log *history.Log, opts ...Option) *Store {
	s := &Store{
		st:    st,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// querier is satisfied by both *store.Store (snapshot reads) and
// *store.Txn (reads inside a transaction).
type querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

// withTxn runs fn inside one write transaction, committing on success and
// rolling back on any error.
func (s *Store) withTxn(ctx context.Context, fn func(txn *store.Txn) error) error {
	txn, err := s.st.Begin(ctx)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// record appends one history entry inside txn. A failed append aborts the
// enclosing transaction, so graph state and history can never diverge.
func (s *Store) record(ctx context.Context, txn *store.Txn, e *model.HistoryEntry) error {
	e.Timestamp = s.now()
	return s.log.Append(ctx, txn, e)
}

const planColumns = "id, name, title, description, status, created_at, updated_at"

const taskColumns = "id, plan_id, title, description, status, priority, sort_order, agent, assigned_to, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*model.Plan, error) {
	var p model.Plan
	var status, created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.Title, &p.Description, &status, &created, &updated); err != nil {
		return nil, err
	}
	parsed, ok := model.ParsePlanStatus(status)
	if !ok {
		return nil, fmt.Errorf("corrupt plan status %q for %s", status, p.ID)
	}
	p.Status = parsed
	var err error
	if p.CreatedAt, err = model.ParseTime(created); err != nil {
		return nil, fmt.Errorf("parse plan created_at: %w", err)
	}
	if p.UpdatedAt, err = model.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("parse plan updated_at: %w", err)
	}
	return &p, nil
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	var status, created, updated string
	if err := row.Scan(&t.ID, &t.PlanID, &t.Title, &t.Description, &status,
		&t.Priority, &t.SortOrder, &t.Agent, &t.AssignedTo, &created, &updated); err != nil {
		return nil, err
	}
	parsed, ok := model.ParseTaskStatus(status)
	if !ok {
		return nil, fmt.Errorf("corrupt task status %q for %s", status, t.ID)
	}
	t.Status = parsed
	var err error
	if t.CreatedAt, err = model.ParseTime(created); err != nil {
		return nil, fmt.Errorf("parse task created_at: %w", err)
	}
	if t.UpdatedAt, err = model.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("parse task updated_at: %w", err)
	}
	return &t, nil
}

func getPlan(ctx context.Context, q querier, id string) (*model.Plan, error) {
	row := q.QueryRow(ctx, "SELECT "+planColumns+" FROM plans WHERE id = ?", id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrPlanNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func getTask(ctx context.Context, q querier, id string) (*model.Task, error) {
	row := q.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrTaskNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()
	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
