package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/testutil"
)

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	cmd := &cobra.Command{Use: "plan"}
	cmd.Flags().String("db", "", "")
	cmd.Flags().String("log-level", "info", "")
	require.NoError(t, cmd.Flags().Set("db", "/tmp/other.db"))

	require.NoError(t, bindFlags(cmd))

	assert.Equal(t, "/tmp/other.db", viper.GetString("database.path"))
	assert.Equal(t, "info", viper.GetString("logging.level"))
	assert.False(t, viper.IsSet("sheets.spreadsheet_id"))
}

func TestDatabaseFlagSurvivesConfigReset(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(viper.Reset)

	db := testutil.SetupTestDB(t, testutil.Snapshot())

	for range 2 {
		viper.Reset()
		out := runPlan(t, "--db", db.Path, "table", "--today", "2024-04-15", "--no-color")
		assert.Contains(t, out, "April 2024 (current)")
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, common.NewUserError("no accounts stored yet", common.ErrNotFound))
	assert.Contains(t, buf.String(), "no accounts stored yet")
	assert.NotContains(t, buf.String(), "not found")

	buf.Reset()
	printError(&buf, errors.New("disk full"))
	assert.Contains(t, buf.String(), "disk full")
}
