package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-plan-must-flow/internal/cli"
	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

func taxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax <yearly salary>",
		Short: "Predict the monthly payslip of a salary",
		Long: `Predict income tax, National Insurance, student loan and salary sacrifice
pension for one month of a yearly salary, using the stored tax parameters of a
financial year.

Examples:
  plan tax 85000
  plan tax 85,000.00 --tax-code 1100L --student-loan --pension 0.05 --year 2025`,
		Args: cobra.ExactArgs(1),
		RunE: runTax,
	}

	cmd.Flags().Int("year", 0, "financial year of the tax parameters (default: the current one)")
	cmd.Flags().String("tax-code", "", "PAYE tax code such as 1257L (default: the basic allowance)")
	cmd.Flags().Bool("student-loan", false, "deduct student loan repayments")
	cmd.Flags().Float64("pension", 0, "salary sacrifice pension contribution as a fraction of gross")

	return cmd
}

func runTax(cmd *cobra.Command, args []string) error {
	salary, err := parseMoney(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid salary %q", args[0]), err)
	}

	taxCode, _ := cmd.Flags().GetString("tax-code")
	studentLoan, _ := cmd.Flags().GetBool("student-loan")
	pension, _ := cmd.Flags().GetFloat64("pension")

	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
	}

	year, _ := cmd.Flags().GetInt("year")
	if year == 0 {
		year = planning.FinancialYearOf(time.Now(), cfg.StartMonth)
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.LoadSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	rates, err := planning.RatesForYear(snap.State.Parameters, year)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("no usable tax parameters for %s", planning.YearLabel(year)), err)
	}

	slip, err := planning.NewTaxCalculator(rates).ForIncome(model.Income{
		Salary:         salary,
		TaxCode:        taxCode,
		StudentLoan:    studentLoan,
		PensionContrib: pension,
	})
	if err != nil {
		return err
	}

	return cli.NewRenderer(cmd.OutOrStdout(), false).Payslip(slip)
}

// parseMoney reads an amount in pounds, such as 85000, 85,000.50 or £1200,
// as minor units.
func parseMoney(s string) (int64, error) {
	clean := strings.NewReplacer(",", "", "£", "", " ", "").Replace(s)
	pounds, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, common.Malformed("amount %q", s)
	}
	if math.IsNaN(pounds) || math.IsInf(pounds, 0) {
		return 0, common.Malformed("amount %q", s)
	}
	return int64(math.Round(pounds * 100)), nil
}
