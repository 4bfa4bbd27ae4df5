package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-plan-must-flow/internal/cli"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

func tableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Show the month by month projection of a financial year",
		Long: `Project every stored account across a financial year and print each
month's ledger: start balance, transactions, credit card payments and end balance.

Verified amounts are marked ✓, estimates ≈.

Examples:
  # The current financial year
  plan table

  # Next year, as seen from a given date, only from September
  plan table --year 2025 --today 2025-03-01 --from 8`,
		Args: cobra.NoArgs,
		RunE: runTable,
	}

	addPeriodFlags(cmd)
	cmd.Flags().Bool("no-color", false, "do not tint transaction values")
	cmd.Flags().Int("from", -1, "only show months from this calendar month (0-11)")

	return cmd
}

func runTable(cmd *cobra.Command, _ []string) error {
	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
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

	noColor, _ := cmd.Flags().GetBool("no-color")
	from, _ := cmd.Flags().GetInt("from")

	table := proj.table
	if !noColor {
		table = planning.ApplyColorScale(table)
	}
	table = monthsFrom(table, from)

	return cli.NewRenderer(cmd.OutOrStdout(), !noColor).Table(proj.year, table)
}

// monthsFrom drops the months of the year before the given calendar month.
func monthsFrom(table []model.PlanningData, month int) []model.PlanningData {
	if month < 0 {
		return table
	}
	i := slices.IndexFunc(table, func(m model.PlanningData) bool { return m.Month == month })
	if i < 0 {
		return nil
	}
	return table[i:]
}

func overviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarise a financial year",
		Long: `Print the yearly overview: gross income, deductions, disposable income,
investments, pension contributions, credit card spending and every recurring
transaction.

Examples:
  plan overview
  plan overview --year 2024 --years 3`,
		Args: cobra.NoArgs,
		RunE: runOverview,
	}

	addPeriodFlags(cmd)
	cmd.Flags().Int("years", 1, "number of consecutive financial years to summarise")

	return cmd
}

func runOverview(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetInt("years")
	if years < 1 {
		return fmt.Errorf("--years must be at least 1")
	}

	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := newPlanner(cmd, store, cfg)
	if err != nil {
		return err
	}

	renderer := cli.NewRenderer(cmd.OutOrStdout(), false)
	for year := p.year; year < p.year+years; year++ {
		proj, err := p.project(year)
		if err != nil {
			return err
		}
		if err := renderer.Overview(proj.year, proj.overview); err != nil {
			return err
		}
	}

	return nil
}
