// Package resolver computes which tasks are eligible to run next from the
// current committed graph state. It is strictly read-only: completion
// order is caller-driven, so the resolver never looks past the first
// layer of ready tasks.
package resolver

import (
	"context"
	"sort"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/model"
)

// Batch is a set of mutually independent tasks: no direct or transitive
// edge connects any two members, so they may run in parallel.
type Batch []model.Task

// Resolver answers ready-task and ordering queries over a graph store.
type Resolver struct {
	g *graph.Store
}

// New creates a Resolver reading through g.
func New(g *graph.Store) *Resolver {
	return &Resolver{g: g}
}

// NextReady returns the ordered list of parallel batches for a plan. Only
// the first Kahn layer is ever computed: a task is ready iff its status is
// pending and every predecessor is done. Later layers would be
// invalidated by the caller's own status changes, so they are never
// precomputed; when nothing is ready the result is empty.
//
// Ordering within the batch is ascending creation time, then ascending
// identifier. The identifier is a deterministic tie-break, not a priority.
func (r *Resolver) NextReady(ctx context.Context, planID string) ([]Batch, error) {
	tasks, err := r.g.ListTasks(ctx, planID)
	if err != nil {
		return nil, err
	}
	edges, err := r.g.PlanEdges(ctx, planID)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Status == model.TaskDone {
			done[t.ID] = true
		}
	}

	// Effective in-degree: count only predecessors that are not done.
	indegree := make(map[string]int, len(tasks))
	for _, e := range edges {
		if !done[e.FromID] {
			indegree[e.ToID]++
		}
	}

	var ready Batch
	for _, t := range tasks {
		if t.Status == model.TaskPending && indegree[t.ID] == 0 {
			ready = append(ready, t)
		}
	}
	sortTasks(ready)

	if len(ready) == 0 {
		return []Batch{}, nil
	}
	return []Batch{ready}, nil
}

// FullTopologicalOrder returns one valid total order of all plan tasks
// respecting every edge, for audit and export. It fails with CycleDetected
// if the stored graph violates the acyclicity invariant, which the
// mutation path makes unreachable on a healthy store.
func (r *Resolver) FullTopologicalOrder(ctx context.Context, planID string) ([]model.Task, error) {
	tasks, err := r.g.ListTasks(ctx, planID)
	if err != nil {
		return nil, err
	}
	edges, err := r.g.PlanEdges(ctx, planID)
	if err != nil {
		return nil, err
	}

	successors := make(map[string][]string, len(tasks))
	indegree := make(map[string]int, len(tasks))
	for _, e := range edges {
		successors[e.FromID] = append(successors[e.FromID], e.ToID)
		indegree[e.ToID]++
	}

	byID := make(map[string]model.Task, len(tasks))
	var frontier Batch
	for _, t := range tasks {
		byID[t.ID] = t
		if indegree[t.ID] == 0 {
			frontier = append(frontier, t)
		}
	}
	sortTasks(frontier)

	order := make([]model.Task, 0, len(tasks))
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next)

		for _, succ := range successors[next.ID] {
			indegree[succ]--
			if indegree[succ] == 0 {
				frontier = insertSorted(frontier, byID[succ])
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, model.Errf(model.CodeCycleDetected,
			"stored dependency graph for plan %s contains a cycle", planID)
	}
	return order, nil
}

// sortTasks orders by creation time, then identifier.
func sortTasks(tasks Batch) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// insertSorted keeps the frontier ordered under the sortTasks comparison.
func insertSorted(frontier Batch, t model.Task) Batch {
	i := sort.Search(len(frontier), func(i int) bool {
		if !frontier[i].CreatedAt.Equal(t.CreatedAt) {
			return frontier[i].CreatedAt.After(t.CreatedAt)
		}
		return frontier[i].ID > t.ID
	})
	frontier = append(frontier, model.Task{})
	copy(frontier[i+1:], frontier[i:])
	frontier[i] = t
	return frontier
}
