package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/model"
)

// gitRepo creates a fake repository root with a .git directory.
func gitRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	return root
}

func TestFindRoot_WalksUp(t *testing.T) {
	t.Setenv(rootEnv, "")
	root := gitRepo(t)
	nested := filepath.Join(root, "src", "internal", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindRoot_GitFileMarker(t *testing.T) {
	// Worktrees use a .git file instead of a directory.
	t.Setenv(rootEnv, "")
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: elsewhere\n"), 0o644))

	got, err := FindRoot(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindRoot_NoRepository(t *testing.T) {
	t.Setenv(rootEnv, "")
	dir := t.TempDir()

	_, err := FindRoot(dir)
	assert.Equal(t, model.CodeNoRepositoryRoot, model.CodeOf(err))
}

func TestFindRoot_EnvOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv(rootEnv, override)

	got, err := FindRoot(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, override, got)
}

func TestResolve_Paths(t *testing.T) {
	t.Setenv(rootEnv, "")
	root := gitRepo(t)

	ws, err := Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".worktoolai", "taskai"), ws.Dir)
	assert.Equal(t, filepath.Join(ws.Dir, "taskai.db"), ws.DBPath())
	assert.Equal(t, filepath.Join(ws.Dir, "config.yaml"), ws.ConfigPath())
	assert.False(t, ws.Initialized())

	require.NoError(t, ws.EnsureDir())
	require.NoError(t, os.WriteFile(ws.DBPath(), nil, 0o644))
	assert.True(t, ws.Initialized())
}

func TestConfig_RoundTrip(t *testing.T) {
	t.Setenv(rootEnv, "")
	root := gitRepo(t)
	ws, err := Resolve(root)
	require.NoError(t, err)

	// Missing file yields a zero config.
	cfg, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.ActivePlanID)
	assert.Zero(t, cfg.LockTimeoutMS)

	cfg.ActivePlanID = "plan-123"
	cfg.LockTimeoutMS = 250
	require.NoError(t, ws.SaveConfig(cfg))

	loaded, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
