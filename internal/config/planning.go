package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

// Planning holds the settings of the projection engine and its snapshot store.
type Planning struct {
	DatabasePath string
	StartMonth   int
	CacheSize    int
}

// DefaultDatabasePath is where the snapshot store lives unless configured.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/plan/plan.db")
}

// SetDefaults registers the planning defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("planning.start_month", planning.DefaultStartMonth)
	v.SetDefault("planning.cache_size", planning.DefaultCacheSize)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadPlanningConfig reads the planning settings from v.
func LoadPlanningConfig(v *viper.Viper) (*Planning, error) {
	config := &Planning{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		StartMonth:   v.GetInt("planning.start_month"),
		CacheSize:    v.GetInt("planning.cache_size"),
	}

	if config.DatabasePath == "" {
		config.DatabasePath = DefaultDatabasePath()
	}

	opts := planning.Options{StartMonth: config.StartMonth}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if config.CacheSize <= 0 {
		return nil, fmt.Errorf("%w: planning.cache_size must be positive, got %d", common.ErrInvalidConfig, config.CacheSize)
	}

	return config, nil
}

// EnsureDatabaseDir creates the directory holding the database file.
func (p *Planning) EnsureDatabaseDir() error {
	if err := os.MkdirAll(filepath.Dir(p.DatabasePath), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// ProjectorOptions returns the projection options for these settings.
func (p *Planning) ProjectorOptions() planning.Options {
	return planning.Options{StartMonth: p.StartMonth}
}
