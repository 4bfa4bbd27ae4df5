package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-plan-must-flow/internal/cli"
	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/config"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
	"github.com/Veraticus/the-plan-must-flow/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a financial year to Google Sheets",
		Long: `Export the overview, monthly balances and full ledger of a financial year
to a Google Sheets spreadsheet, one tab each.

Configure credentials under sheets.* in the config file or with the
GOOGLE_SHEETS_* environment variables; run 'plan auth sheets' for OAuth2.

Examples:
  plan export
  plan export --year 2024 --spreadsheet-id 1AbC...`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	addPeriodFlags(cmd)
	cmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to write to (default: create one)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured, see 'plan auth sheets'", err)
	}

	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := newPlanner(cmd, store, cfg)
	if err != nil {
		return err
	}

	proj, err := p.project(p.year)
	if err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return err
	}

	if err := exportProjection(ctx, writer, proj, time.Now()); err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported "+planning.YearLabel(proj.year)+" to Google Sheets"))
	return err
}

func exportProjection(ctx context.Context, writer service.ReportWriter, proj *projection, now time.Time) error {
	report := &service.PlanningReport{
		GeneratedAt: now,
		Months:      proj.table,
		Overview:    proj.overview,
		Year:        proj.year,
	}

	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export %s: %w", planning.YearLabel(proj.year), err)
	}
	return nil
}
