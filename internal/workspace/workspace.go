// Package workspace locates the on-disk store relative to the enclosing
// version-controlled repository and manages the per-repository config file.
//
// The store lives at <repo-root>/.worktoolai/taskai/. Absence of a
// repository root is a configuration error, never silently defaulted.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// storeDir is the fixed path of the store beneath the repository root.
	storeDir = ".worktoolai/taskai"

	dbFile     = "taskai.db"
	configFile = "config.yaml"

	// rootEnv overrides repository-root discovery, for callers running
	// outside the repository they are tracking.
	rootEnv = "TASKAI_ROOT"
)

// Workspace is the resolved location of one repository's store.
type Workspace struct {
	Root string // repository root
	Dir  string // store directory beneath it
}

// FindRoot walks up from startDir to the nearest directory containing a
// .git marker (directory or file, to cover worktrees). The TASKAI_ROOT
// environment variable short-circuits discovery.
func FindRoot(startDir string) (string, error) {
	if root := os.Getenv(rootEnv); root != "" {
		return root, nil
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNoRepositoryRoot(startDir)
		}
		dir = parent
	}
}

// Resolve locates the workspace for the repository enclosing startDir.
func Resolve(startDir string) (*Workspace, error) {
	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Root: root,
		Dir:  filepath.Join(root, filepath.FromSlash(storeDir)),
	}, nil
}

// DBPath is the store database file.
func (w *Workspace) DBPath() string {
	return filepath.Join(w.Dir, dbFile)
}

// ConfigPath is the per-repository config file.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.Dir, configFile)
}

// Initialized reports whether the store database exists.
func (w *Workspace) Initialized() bool {
	_, err := os.Stat(w.DBPath())
	return err == nil
}

// EnsureDir creates the store directory tree.
func (w *Workspace) EnsureDir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
