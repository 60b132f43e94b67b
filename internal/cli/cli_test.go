package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/model"
)

// run executes one CLI invocation against the store under TASKAI_ROOT.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{}
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, "taskai %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestCLI_EndToEnd(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())

	// Commands before init fail with an environment error.
	_, err := run(t, "", "plan", "list")
	require.Equal(t, model.CodeNotInitialized, model.CodeOf(err))
	assert.Equal(t, ExitEnvironment, GetExitCode(err))

	out := mustRun(t, "init")
	assert.Contains(t, out, "Initialized taskai at")

	// First plan auto-activates.
	out = mustRun(t, "plan", "create", "rollout", "--title", "Rollout")
	assert.Contains(t, out, "Created plan: rollout")
	out = mustRun(t, "plan", "list")
	assert.Contains(t, out, "rollout")
	assert.Contains(t, out, "*")

	mustRun(t, "task", "add", "write schema")
	out = mustRun(t, "task", "list")
	assert.Contains(t, out, "write schema")
	assert.Contains(t, out, "[pending")
}

func TestCLI_TaskFlow(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	mustRun(t, "init")
	mustRun(t, "plan", "create", "rollout")

	out := mustRun(t, "task", "add", "schema")
	schemaID := createdTaskID(t, out)
	out = mustRun(t, "task", "add", "queries", "--after", schemaID)
	queriesID := createdTaskID(t, out)

	// Only the root task is ready.
	out = mustRun(t, "next")
	assert.Contains(t, out, "schema")
	assert.NotContains(t, out, "queries")

	// Completing out of order is rejected.
	mustRun(t, "task", "status", queriesID, "in_progress")
	_, err := run(t, "", "task", "status", queriesID, "done")
	require.Equal(t, model.CodeDependencyNotSatisfied, model.CodeOf(err))
	assert.Equal(t, ExitValidation, GetExitCode(err))

	mustRun(t, "task", "status", schemaID, "in_progress")
	mustRun(t, "task", "status", schemaID, "done")
	mustRun(t, "task", "status", queriesID, "done")

	out = mustRun(t, "next")
	assert.Contains(t, out, "No tasks ready")

	out = mustRun(t, "plan", "complete", "rollout")
	assert.Contains(t, out, "now completed")
}

func TestCLI_DependenciesAndHistory(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	mustRun(t, "init")
	mustRun(t, "plan", "create", "rollout")

	a := createdTaskID(t, mustRun(t, "task", "add", "a"))
	b := createdTaskID(t, mustRun(t, "task", "add", "b"))

	mustRun(t, "dep", "add", b, a)
	_, err := run(t, "", "dep", "add", a, b)
	require.Equal(t, model.CodeCycleDetected, model.CodeOf(err))

	out := mustRun(t, "task", "show", b)
	assert.Contains(t, out, "Depends on:")
	assert.Contains(t, out, a)

	mustRun(t, "dep", "remove", b, a)
	out = mustRun(t, "history")
	assert.Contains(t, out, "create_plan")
	assert.Contains(t, out, "add_dependency")
	assert.Contains(t, out, "remove_dependency")
}

func TestCLI_PlanLoadAndClaim(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	mustRun(t, "init")

	def := `{"name": "imported", "title": "Imported", "tasks": [
		{"id": "a", "title": "task a", "priority": 1},
		{"id": "b", "title": "task b", "priority": 9},
		{"id": "c", "title": "task c", "after": ["a", "b"]}
	]}`
	out, err := run(t, def, "plan", "load")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Loaded plan "imported" with 3 tasks.`)

	// Claims take the highest-priority ready task.
	out = mustRun(t, "next", "--claim", "--agent", "worker-1")
	assert.Contains(t, out, "task b")

	out = mustRun(t, "next", "--claim")
	assert.Contains(t, out, "task a")

	out = mustRun(t, "next", "--claim")
	assert.Contains(t, out, "No ready tasks")

	out = mustRun(t, "next", "--all")
	assert.Contains(t, out, "task c")
}

func TestCLI_Documents(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	mustRun(t, "init")
	mustRun(t, "plan", "create", "rollout")

	out, err := run(t, "first draft", "doc", "put", "plan", "rollout", "--title", "design")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stored revision 1")

	out, err = run(t, "second draft", "doc", "put", "plan", "rollout", "--title", "design")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stored revision 2")

	out = mustRun(t, "doc", "get", "plan", "rollout")
	assert.Contains(t, out, "revision 2")
	assert.Contains(t, out, "second draft")

	out = mustRun(t, "doc", "get", "plan", "rollout", "--revision", "1")
	assert.Contains(t, out, "first draft")

	out = mustRun(t, "doc", "list", "plan", "rollout")
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "r2")
}

func TestCLI_StatusOverview(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	mustRun(t, "init")
	mustRun(t, "plan", "create", "one")
	mustRun(t, "plan", "create", "two")
	mustRun(t, "task", "add", "a", "--plan", "one")

	out := mustRun(t, "status")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
}

func TestCLI_InvalidFormatRejected(t *testing.T) {
	t.Setenv("TASKAI_ROOT", t.TempDir())
	_, err := run(t, "", "plan", "list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// createdTaskID extracts the id from `task add` output:
// "Created task: <id> - <title>".
func createdTaskID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 3, "unexpected output %q", out)
	return fields[2]
}
