package graph

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/history"
	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
	"github.com/worktoolai/taskai/internal/testutil"
)

var testBase = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestGraph opens a fresh store in a temp dir with a deterministic
// clock and id generator.
func newTestGraph(t *testing.T) (*Store, *history.Log) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := history.New(st)
	g := New(st, log,
		WithClock(testutil.NewClock(testBase, time.Second).Now),
		WithIDGenerator(testutil.NewIDGen("id").Next))
	return g, log
}

func TestCreatePlan(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "auth-rollout", "Auth rollout", "migrate login flow")
	require.NoError(t, err)
	assert.Equal(t, "id-001", plan.ID)
	assert.Equal(t, model.PlanOpen, plan.Status)
	assert.Equal(t, testBase, plan.CreatedAt)

	got, err := g.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Name, got.Name)
}

func TestCreatePlan_TitleDefaultsToName(t *testing.T) {
	g, _ := newTestGraph(t)

	plan, err := g.CreatePlan(context.Background(), "cleanup", "", "")
	require.NoError(t, err)
	assert.Equal(t, "cleanup", plan.Title)
}

func TestCreatePlan_NameConflict(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	_, err := g.CreatePlan(ctx, "auth-rollout", "", "")
	require.NoError(t, err)

	_, err = g.CreatePlan(ctx, "auth-rollout", "", "")
	assert.Equal(t, model.CodePlanNameConflict, model.CodeOf(err))
}

func TestCreatePlan_InvalidName(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	for _, name := range []string{"", "Auth", "auth rollout", "-auth", "auth-"} {
		_, err := g.CreatePlan(ctx, name, "", "")
		assert.Equal(t, model.CodeValidation, model.CodeOf(err), "name %q", name)
	}
}

func TestSetPlanStatus_CompleteRequiresFinishedTasks(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "rollout", "", "")
	require.NoError(t, err)
	task, err := g.CreateTask(ctx, plan.ID, "ship it", "")
	require.NoError(t, err)

	_, err = g.SetPlanStatus(ctx, plan.ID, model.PlanCompleted)
	require.Equal(t, model.CodeDependencyNotSatisfied, model.CodeOf(err))

	// Cancelled counts as finished.
	_, err = g.SetTaskStatus(ctx, task.ID, model.TaskCancelled)
	require.NoError(t, err)

	updated, err := g.SetPlanStatus(ctx, plan.ID, model.PlanCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.PlanCompleted, updated.Status)
}

func TestSetPlanStatus_ArchivedIsTerminal(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "rollout", "", "")
	require.NoError(t, err)
	_, err = g.SetPlanStatus(ctx, plan.ID, model.PlanArchived)
	require.NoError(t, err)

	_, err = g.SetPlanStatus(ctx, plan.ID, model.PlanOpen)
	assert.Equal(t, model.CodeTerminalState, model.CodeOf(err))
}

func TestSetPlanStatus_InvalidTransition(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "rollout", "", "")
	require.NoError(t, err)

	_, err = g.SetPlanStatus(ctx, plan.ID, model.PlanOpen)
	assert.Equal(t, model.CodeInvalidTransition, model.CodeOf(err))
}

func TestResolvePlan(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	a, err := g.CreatePlan(ctx, "alpha", "", "")
	require.NoError(t, err)
	_, err = g.CreatePlan(ctx, "beta", "", "")
	require.NoError(t, err)

	byID, err := g.ResolvePlan(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byID.ID)

	byName, err := g.ResolvePlan(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	byPrefix, err := g.ResolvePlan(ctx, "id-001")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byPrefix.ID)

	_, err = g.ResolvePlan(ctx, "id-0")
	assert.Equal(t, model.CodeAmbiguousRef, model.CodeOf(err))

	_, err = g.ResolvePlan(ctx, "gamma")
	assert.Equal(t, model.CodePlanNotFound, model.CodeOf(err))
}

func TestProgress(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "rollout", "", "")
	require.NoError(t, err)

	var tasks []*model.Task
	for _, title := range []string{"a", "b", "c", "d"} {
		task, err := g.CreateTask(ctx, plan.ID, title, "")
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	_, err = g.SetTaskStatus(ctx, tasks[0].ID, model.TaskInProgress)
	require.NoError(t, err)
	_, err = g.SetTaskStatus(ctx, tasks[0].ID, model.TaskDone)
	require.NoError(t, err)
	_, err = g.SetTaskStatus(ctx, tasks[1].ID, model.TaskCancelled)
	require.NoError(t, err)

	p, err := g.Progress(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.Total)
	assert.Equal(t, int64(2), p.Pending)
	assert.Equal(t, int64(1), p.Done)
	assert.Equal(t, int64(1), p.Cancelled)
	assert.InDelta(t, 25.0, p.Percentage, 0.001)
}

// Every accepted mutation appends exactly one history entry; rejected and
// no-op mutations append none.
func TestHistoryCountsAcceptedMutations(t *testing.T) {
	g, log := newTestGraph(t)
	ctx := context.Background()

	plan, err := g.CreatePlan(ctx, "rollout", "", "") // 1
	require.NoError(t, err)
	a, err := g.CreateTask(ctx, plan.ID, "a", "") // 2
	require.NoError(t, err)
	b, err := g.CreateTask(ctx, plan.ID, "b", "") // 3
	require.NoError(t, err)
	require.NoError(t, g.AddDependency(ctx, a.ID, b.ID)) // 4

	// Rejected: cycle. No entry.
	err = g.AddDependency(ctx, b.ID, a.ID)
	require.Equal(t, model.CodeCycleDetected, model.CodeOf(err))

	// No-op: duplicate edge. No entry.
	require.NoError(t, g.AddDependency(ctx, a.ID, b.ID))

	// No-op: removing an absent edge. No entry.
	require.NoError(t, g.RemoveDependency(ctx, b.ID, a.ID))

	require.NoError(t, g.RemoveDependency(ctx, a.ID, b.ID)) // 5

	entries, err := log.Query(ctx, history.Filter{PlanID: plan.ID})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.Op
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, []string{
		"create_plan", "create_task", "create_task",
		"add_dependency", "remove_dependency",
	}, ops)
}
