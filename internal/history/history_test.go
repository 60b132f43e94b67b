package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st)
}

// append commits one entry and returns it with its assigned seq.
func appendEntry(t *testing.T, l *Log, e model.HistoryEntry) model.HistoryEntry {
	t.Helper()
	ctx := context.Background()
	txn, err := l.st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, txn, &e))
	require.NoError(t, txn.Commit())
	return e
}

func testEntry(planID, entityID, op string) model.HistoryEntry {
	return model.HistoryEntry{
		Timestamp:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EntityKind: model.EntityTask,
		EntityID:   entityID,
		PlanID:     planID,
		Op:         op,
		After:      `{"status":"pending"}`,
	}
}

func TestAppend_AssignsIncreasingSeq(t *testing.T) {
	l := newTestLog(t)

	var last int64
	for i := 0; i < 5; i++ {
		e := appendEntry(t, l, testEntry("p1", "t1", "create_task"))
		assert.Greater(t, e.Seq, last)
		last = e.Seq
	}
}

func TestQuery_Filters(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	appendEntry(t, l, testEntry("p1", "t1", "create_task")) // seq 1
	appendEntry(t, l, testEntry("p1", "t2", "create_task")) // seq 2
	appendEntry(t, l, testEntry("p2", "t3", "create_task")) // seq 3
	appendEntry(t, l, testEntry("p1", "t1", "set_task_status")) // seq 4

	all, err := l.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	byPlan, err := l.Query(ctx, Filter{PlanID: "p1"})
	require.NoError(t, err)
	assert.Len(t, byPlan, 3)

	byTask, err := l.Query(ctx, Filter{PlanID: "p1", TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, byTask, 2)
	assert.Equal(t, "create_task", byTask[0].Op)
	assert.Equal(t, "set_task_status", byTask[1].Op)

	window, err := l.Query(ctx, Filter{SeqFrom: 2, SeqTo: 3})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, int64(2), window[0].Seq)
	assert.Equal(t, int64(3), window[1].Seq)

	none, err := l.Query(ctx, Filter{PlanID: "p9"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_RoundTripsFields(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	in := model.HistoryEntry{
		Timestamp:  time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC),
		EntityKind: model.EntityEdge,
		EntityID:   "t2",
		PlanID:     "p1",
		Op:         "add_dependency",
		Before:     "",
		After:      `{"from":"t1","to":"t2"}`,
	}
	appendEntry(t, l, in)

	got, err := l.Query(ctx, Filter{PlanID: "p1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.Timestamp, got[0].Timestamp)
	assert.Equal(t, in.EntityKind, got[0].EntityKind)
	assert.Equal(t, in.Op, got[0].Op)
	assert.Empty(t, got[0].Before)
	assert.Equal(t, in.After, got[0].After)
}

// Queries read the committed snapshot, so re-running a windowed query
// yields the same page even after later appends.
func TestQuery_WindowIsRestartable(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		appendEntry(t, l, testEntry("p1", "t1", "create_task"))
	}

	first, err := l.Query(ctx, Filter{SeqFrom: 1, SeqTo: 2})
	require.NoError(t, err)

	appendEntry(t, l, testEntry("p1", "t1", "set_task_status"))

	again, err := l.Query(ctx, Filter{SeqFrom: 1, SeqTo: 2})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestCompileFilter(t *testing.T) {
	query, args := compileFilter(Filter{})
	assert.Equal(t, "SELECT seq, ts, entity_kind, entity_id, plan_id, op, before, after FROM history ORDER BY seq ASC", query)
	assert.Empty(t, args)

	query, args = compileFilter(Filter{PlanID: "p1", TaskID: "t1", SeqFrom: 2, SeqTo: 9})
	assert.Contains(t, query, "plan_id = ? AND entity_id = ? AND seq >= ? AND seq <= ?")
	assert.Equal(t, []any{"p1", "t1", int64(2), int64(9)}, args)
}
