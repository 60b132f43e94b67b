package workspace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/worktoolai/taskai/internal/model"
)

// Config is the per-repository configuration stored next to the database.
type Config struct {
	// ActivePlanID is the plan commands operate on when --plan is not given.
	ActivePlanID string `yaml:"active_plan_id,omitempty"`
	// LockTimeoutMS overrides the bounded wait for the store write lock.
	LockTimeoutMS int `yaml:"lock_timeout_ms,omitempty"`
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func (w *Workspace) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(w.ConfigPath())
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the config file, creating the store directory if
// needed.
func (w *Workspace) SaveConfig(cfg *Config) error {
	if err := w.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(w.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func errNoRepositoryRoot(dir string) error {
	return model.ErrNoRepositoryRoot(dir)
}
