package resolver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
	"github.com/worktoolai/taskai/internal/testutil"
)

type fixture struct {
	st  *store.Store
	g   *graph.Store
	r   *Resolver
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	g := graph.New(st, history.New(st),
		graph.WithClock(testutil.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second).Now),
		graph.WithIDGenerator(testutil.NewIDGen("id").Next))
	return &fixture{st: st, g: g, r: New(g), ctx: context.Background()}
}

func (f *fixture) plan(t *testing.T) string {
	t.Helper()
	plan, err := f.g.CreatePlan(f.ctx, "rollout", "", "")
	require.NoError(t, err)
	return plan.ID
}

func (f *fixture) task(t *testing.T, planID, title string, opts ...graph.TaskOption) string {
	t.Helper()
	task, err := f.g.CreateTask(f.ctx, planID, title, "", opts...)
	require.NoError(t, err)
	return task.ID
}

func (f *fixture) done(t *testing.T, taskID string) {
	t.Helper()
	_, err := f.g.SetTaskStatus(f.ctx, taskID, model.TaskInProgress)
	require.NoError(t, err)
	_, err = f.g.SetTaskStatus(f.ctx, taskID, model.TaskDone)
	require.NoError(t, err)
}

func titles(batch Batch) []string {
	out := make([]string, len(batch))
	for i, task := range batch {
		out[i] = task.Title
	}
	return out
}

// Two independent roots feeding a join: a and b are ready together, c
// becomes ready only once both are done.
func TestNextReady_JoinWaitsForAllPredecessors(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	a := f.task(t, planID, "a")
	b := f.task(t, planID, "b")
	f.task(t, planID, "c", graph.WithAfter(a, b))

	batches, err := f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b"}, titles(batches[0]))

	f.done(t, a)
	batches, err = f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"b"}, titles(batches[0]))

	f.done(t, b)
	batches, err = f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"c"}, titles(batches[0]))
}

func TestNextReady_EmptyWhenNothingReady(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	batches, err := f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	assert.Empty(t, batches)

	a := f.task(t, planID, "a")
	_, err = f.g.SetTaskStatus(f.ctx, a, model.TaskInProgress)
	require.NoError(t, err)

	// In-progress tasks are not ready; neither are blocked ones.
	b := f.task(t, planID, "b")
	_, err = f.g.SetTaskStatus(f.ctx, b, model.TaskBlocked)
	require.NoError(t, err)

	batches, err = f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

// Cancelled predecessors never satisfy a dependency: the successor stays
// out of the ready batch until the edge is removed.
func TestNextReady_CancelledPredecessorStillGates(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	a := f.task(t, planID, "a")
	f.task(t, planID, "b", graph.WithAfter(a))

	_, err := f.g.SetTaskStatus(f.ctx, a, model.TaskCancelled)
	require.NoError(t, err)

	batches, err := f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestNextReady_BatchOrderIsCreationThenID(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	// Priority does not affect batch ordering, only claims.
	f.task(t, planID, "first", graph.WithPriority(0))
	f.task(t, planID, "second", graph.WithPriority(100))
	f.task(t, planID, "third", graph.WithPriority(50))

	batches, err := f.r.NextReady(f.ctx, planID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"first", "second", "third"}, titles(batches[0]))
}

func TestNextReady_UnknownPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.r.NextReady(f.ctx, "missing")
	assert.Equal(t, model.CodePlanNotFound, model.CodeOf(err))
}

func TestFullTopologicalOrder(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	// d <- b <- a -> c, plus e independent.
	a := f.task(t, planID, "a")
	b := f.task(t, planID, "b", graph.WithAfter(a))
	f.task(t, planID, "c", graph.WithAfter(a))
	f.task(t, planID, "d", graph.WithAfter(b))
	f.task(t, planID, "e")

	order, err := f.r.FullTopologicalOrder(f.ctx, planID)
	require.NoError(t, err)
	require.Len(t, order, 5)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, titles(order))
}

// A cycle written behind the mutation API's back is still reported
// instead of looping or returning a partial order.
func TestFullTopologicalOrder_DetectsStoredCycle(t *testing.T) {
	f := newFixture(t)
	planID := f.plan(t)

	a := f.task(t, planID, "a")
	b := f.task(t, planID, "b", graph.WithAfter(a))

	txn, err := f.st.Begin(f.ctx)
	require.NoError(t, err)
	_, err = txn.Exec(f.ctx, "INSERT INTO task_edges (from_id, to_id) VALUES (?, ?)", b, a)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	_, err = f.r.FullTopologicalOrder(f.ctx, planID)
	assert.Equal(t, model.CodeCycleDetected, model.CodeOf(err))
}
