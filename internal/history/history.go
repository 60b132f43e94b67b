// Package history implements the append-only mutation log.
//
// Every accepted mutation writes exactly one entry through Append, inside
// the same transaction as the mutation itself; rejected mutations produce
// no entry. Entries are totally ordered by a store-assigned sequence
// number and are never updated, deleted or compacted.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// Log reads and appends history entries.
type Log struct {
	st *store.Store
}

// New creates a Log over the given store.
func New(st *store.Store) *Log {
	return &Log{st: st}
}

// Append writes one entry inside txn and fills in its assigned sequence
// number. It is called only from graph and document commit paths, never
// by external callers; that single path is what keeps history and graph
// state from diverging.
func (l *Log) Append(ctx context.Context, txn *store.Txn, e *model.HistoryEntry) error {
	res, err := txn.Exec(ctx, `
		INSERT INTO history (ts, entity_kind, entity_id, plan_id, op, before, after)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		model.FormatTime(e.Timestamp),
		e.EntityKind,
		e.EntityID,
		e.PlanID,
		e.Op,
		nullable(e.Before),
		nullable(e.After),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	e.Seq = seq
	return nil
}

// Filter selects history entries. Zero values mean "no constraint";
// combining PlanID and TaskID intersects them.
type Filter struct {
	PlanID  string
	TaskID  string
	SeqFrom int64 // inclusive
	SeqTo   int64 // inclusive
}

// Query returns matching entries ordered by sequence number ascending.
// Each call re-reads from the last committed snapshot, so iteration is
// restartable and unaffected by any prior call.
func (l *Log) Query(ctx context.Context, f Filter) ([]model.HistoryEntry, error) {
	query, args := compileFilter(f)

	rows, err := l.st.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// compileFilter builds a parameterized SELECT from a Filter. Values are
// always bound, never interpolated, and the ORDER BY keeps results
// deterministic.
func compileFilter(f Filter) (string, []any) {
	var conds []string
	var args []any

	if f.PlanID != "" {
		conds = append(conds, "plan_id = ?")
		args = append(args, f.PlanID)
	}
	if f.TaskID != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, f.TaskID)
	}
	if f.SeqFrom > 0 {
		conds = append(conds, "seq >= ?")
		args = append(args, f.SeqFrom)
	}
	if f.SeqTo > 0 {
		conds = append(conds, "seq <= ?")
		args = append(args, f.SeqTo)
	}

	query := "SELECT seq, ts, entity_kind, entity_id, plan_id, op, before, after FROM history"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq ASC"
	return query, args
}

func scanEntry(rows *sql.Rows) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	var ts string
	var before, after sql.NullString
	if err := rows.Scan(&e.Seq, &ts, &e.EntityKind, &e.EntityID, &e.PlanID, &e.Op, &before, &after); err != nil {
		return e, fmt.Errorf("scan history entry: %w", err)
	}
	parsed, err := model.ParseTime(ts)
	if err != nil {
		return e, fmt.Errorf("parse history timestamp: %w", err)
	}
	e.Timestamp = parsed
	e.Before = before.String
	e.After = after.String
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
