package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PLAN_TEST_DIR", "/srv/plan")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/plan.db", filepath.Join(home, "plan.db")},
		{"$PLAN_TEST_DIR/plan.db", "/srv/plan/plan.db"},
		{"/abs/plan.db", "/abs/plan.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestLoadPlanningConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		config, err := LoadPlanningConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 3, config.StartMonth)
		assert.Equal(t, 16, config.CacheSize)
		assert.Equal(t, DefaultDatabasePath(), config.DatabasePath)
		assert.Equal(t, 3, config.ProjectorOptions().StartMonth)
	})

	t.Run("overrides", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		dir := t.TempDir()
		v.Set("planning.start_month", 0)
		v.Set("planning.cache_size", 4)
		v.Set("database.path", filepath.Join(dir, "data", "plan.db"))

		config, err := LoadPlanningConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 0, config.StartMonth)
		assert.Equal(t, 4, config.CacheSize)

		require.NoError(t, config.EnsureDatabaseDir())
		assert.DirExists(t, filepath.Join(dir, "data"))
	})

	invalid := []struct {
		name  string
		key   string
		value int
	}{
		{"start month too large", "planning.start_month", 12},
		{"negative start month", "planning.start_month", -1},
		{"zero cache size", "planning.cache_size", 0},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := LoadPlanningConfig(v)
			require.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	for _, env := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(env, "")
	}

	t.Run("viper keys", func(t *testing.T) {
		v := viper.New()
		v.Set("sheets.service_account_path", "/keys/sa.json")
		v.Set("sheets.spreadsheet_id", "sheet-123")
		v.Set("sheets.retry_attempts", 5)
		v.Set("sheets.retry_delay", "2s")
		v.Set("sheets.formatting", false)

		config, err := LoadSheetsConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "/keys/sa.json", config.ServiceAccountPath)
		assert.Equal(t, "sheet-123", config.SpreadsheetID)
		assert.Equal(t, "Financial Plan", config.SpreadsheetName)
		assert.Equal(t, 5, config.RetryAttempts)
		assert.Equal(t, 2*time.Second, config.RetryDelay)
		assert.False(t, config.EnableFormatting)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "client")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "Household")

		config, err := LoadSheetsConfig(viper.New())
		require.NoError(t, err)
		assert.True(t, config.HasOAuth())
		assert.Equal(t, "Household", config.SpreadsheetName)
	})

	t.Run("viper wins over environment", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
		v := viper.New()
		v.Set("sheets.service_account_path", "/keys/sa.json")
		v.Set("sheets.spreadsheet_id", "from-config")

		config, err := LoadSheetsConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "from-config", config.SpreadsheetID)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := LoadSheetsConfig(viper.New())
		require.ErrorIs(t, err, common.ErrMissingConfig)
	})
}
