package graph

import (
	"context"
	"fmt"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

// AddDependency declares that `to` must not start before `from` is done.
// Both tasks must exist in the same plan, the edge must not close a cycle,
// and the plan must not be archived. Adding an edge that already exists is
// a successful no-op.
func (s *Store) AddDependency(ctx context.Context, from, to string) error {
	return s.withTxn(ctx, func(txn *store.Txn) error {
		return s.addEdge(ctx, txn, from, to)
	})
}

// addEdge validates and inserts one dependency edge inside txn. The cycle
// check runs in the same transaction as the insert, so concurrent writers
// cannot race an edge past it.
func (s *Store) addEdge(ctx context.Context, txn *store.Txn, from, to string) error {
	if from == to {
		return model.ErrSelfDependency(from)
	}

	fromTask, err := getTask(ctx, txn, from)
	if err != nil {
		return err
	}
	toTask, err := getTask(ctx, txn, to)
	if err != nil {
		return err
	}
	if fromTask.PlanID != toTask.PlanID {
		return model.ErrCrossPlanEdge(from, to)
	}
	plan, err := getPlan(ctx, txn, fromTask.PlanID)
	if err != nil {
		return err
	}
	if plan.Status == model.PlanArchived {
		return model.ErrTerminalState(plan.ID, "archived plan")
	}

	var exists int
	err = txn.QueryRow(ctx,
		"SELECT COUNT(*) FROM task_edges WHERE from_id = ? AND to_id = ?", from, to).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check edge: %w", err)
	}
	if exists > 0 {
		return nil
	}

	adj, err := planAdjacency(ctx, txn, fromTask.PlanID)
	if err != nil {
		return err
	}
	if adj.reachable(to, from) {
		return model.ErrCycleDetected(from, to)
	}

	if _, err := txn.Exec(ctx,
		"INSERT INTO task_edges (from_id, to_id) VALUES (?, ?)", from, to); err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}

	after, err := history.Summary(map[string]any{"from": from, "to": to})
	if err != nil {
		return err
	}
	return s.record(ctx, txn, &model.HistoryEntry{
		EntityKind: model.EntityEdge,
		EntityID:   to,
		PlanID:     fromTask.PlanID,
		Op:         "add_dependency",
		After:      after,
	})
}

// RemoveDependency deletes the edge (from, to). Idempotent: removing an
// absent edge succeeds and leaves no history entry.
func (s *Store) RemoveDependency(ctx context.Context, from, to string) error {
	return s.withTxn(ctx, func(txn *store.Txn) error {
		res, err := txn.Exec(ctx,
			"DELETE FROM task_edges WHERE from_id = ? AND to_id = ?", from, to)
		if err != nil {
			return fmt.Errorf("delete edge: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete edge: %w", err)
		}
		if affected == 0 {
			return nil
		}

		// The edge existed, so from's task row must too; planID for the
		// history entry comes from it.
		fromTask, err := getTask(ctx, txn, from)
		if err != nil {
			return err
		}

		before, err := history.Summary(map[string]any{"from": from, "to": to})
		if err != nil {
			return err
		}
		return s.record(ctx, txn, &model.HistoryEntry{
			EntityKind: model.EntityEdge,
			EntityID:   to,
			PlanID:     fromTask.PlanID,
			Op:         "remove_dependency",
			Before:     before,
		})
	})
}

// Dependencies returns the ids of tasks that taskID depends on.
func (s *Store) Dependencies(ctx context.Context, taskID string) ([]string, error) {
	return edgeEnds(ctx, s.st, "SELECT from_id FROM task_edges WHERE to_id = ? ORDER BY from_id ASC", taskID)
}

// Dependents returns the ids of tasks that depend on taskID.
func (s *Store) Dependents(ctx context.Context, taskID string) ([]string, error) {
	return edgeEnds(ctx, s.st, "SELECT to_id FROM task_edges WHERE from_id = ? ORDER BY to_id ASC", taskID)
}

func edgeEnds(ctx context.Context, q querier, query, taskID string) ([]string, error) {
	rows, err := q.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PlanEdges returns every dependency edge in the plan.
func (s *Store) PlanEdges(ctx context.Context, planID string) ([]model.Edge, error) {
	rows, err := s.st.Query(ctx, `
		SELECT e.from_id, e.to_id
		FROM task_edges e
		JOIN tasks t ON t.id = e.from_id
		WHERE t.plan_id = ?
		ORDER BY e.from_id ASC, e.to_id ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan edges: %w", err)
	}
	defer rows.Close()

	edges := []model.Edge{}
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.FromID, &e.ToID); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
