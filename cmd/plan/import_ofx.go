package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-plan-must-flow/internal/cli"
	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/ofx"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

// maxSuggestionDistance bounds the edit distance of a "did you mean" suggestion.
const maxSuggestionDistance = 3

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import credit card payments from OFX/QFX files",
		Long: `Import the payments made towards a credit card from OFX or QFX statements,
summed per month, and record them against the paying account.

Card statements count PAYMENT transactions and credits described as payments.
Bank statements count debits whose description matches --card-payee.

Examples:
  # Import card statements
  plan import-ofx --account Current --subcategory 7 ~/Downloads/amex_*.qfx

  # Import the direct debits from a bank statement
  plan import-ofx --account Current --subcategory 7 --card-payee 'AMEX' ~/Downloads/bank.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("account", "", "name of the account paying the card")
	cmd.Flags().Int("subcategory", 0, "net worth subcategory ID of the credit card")
	cmd.Flags().String("card-payee", "", "regular expression matching card payments in bank statements")
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")
	cmd.Flags().BoolP("verbose", "v", false, "show the statement accounts of every file")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("subcategory")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	account, _ := cmd.Flags().GetString("account")
	subcategory, _ := cmd.Flags().GetInt("subcategory")
	payee, _ := cmd.Flags().GetString("card-payee")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
	}

	opts := ofx.Options{StartMonth: cfg.StartMonth}
	if payee != "" {
		if opts.CardPayee, err = regexp.Compile(payee); err != nil {
			return common.NewUserError(fmt.Sprintf("invalid --card-payee %q", payee), err)
		}
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	names, err := store.AccountNames(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, account) {
		return unknownAccountError(account, names)
	}

	slog.Info("Importing OFX files...",
		"file_count", len(files),
		"account", account,
		"dry_run", dryRun)

	parser := ofx.NewParser(opts)
	var batches [][]model.CreditCardPayment
	skipped := 0

	for _, path := range files {
		content, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			common.LogError(err, "Failed to open file", common.Fields{"file": path})
			skipped++
			continue
		}

		if verbose {
			accounts, err := parser.Accounts(ctx, bytes.NewReader(content))
			if err == nil {
				slog.Info("Statement accounts", "file", filepath.Base(path), "accounts", strings.Join(accounts, ", "))
			}
		}

		payments, err := parser.ParseFile(ctx, bytes.NewReader(content))
		if err != nil {
			slog.Warn("No payments imported from file", "file", filepath.Base(path), "error", err)
			skipped++
			continue
		}
		batches = append(batches, payments)
	}

	payments := mergePayments(cfg.StartMonth, batches...)
	if len(payments) == 0 {
		return common.NewUserError("no credit card payments found in the given files", common.ErrNoPayments)
	}

	out := cmd.OutOrStdout()
	if skipped > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d of %d files", skipped, len(files))))
	}
	for _, p := range payments {
		fmt.Fprintf(out, "  %s %d-%02d  %s\n", cli.SubtleStyle.Render("•"), p.Year, p.Month+1, cli.FormatMoney(p.Value))
	}

	if dryRun {
		_, err := fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Found %d months of payments (dry run, nothing saved)", len(payments))))
		return err
	}

	if err := store.AddCreditCardPayments(ctx, account, subcategory, payments); err != nil {
		return fmt.Errorf("failed to save payments: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded %d months of payments against %s", len(payments), account)))
	return err
}

// expandFiles expands glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				matches = []string{pattern}
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		}
		for _, m := range matches {
			if !slices.Contains(files, m) {
				files = append(files, m)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

// mergePayments sums payments of the same month across files, oldest first.
func mergePayments(startMonth int, batches ...[]model.CreditCardPayment) []model.CreditCardPayment {
	var merged []model.CreditCardPayment
	for _, batch := range batches {
		for _, p := range batch {
			i := slices.IndexFunc(merged, func(m model.CreditCardPayment) bool {
				return m.Year == p.Year && m.Month == p.Month
			})
			if i < 0 {
				merged = append(merged, p)
				continue
			}
			merged[i].Value += p.Value
		}
	}

	chronological := func(p model.CreditCardPayment) int {
		return planning.CalendarYear(p.Year, p.Month, startMonth)*planning.MonthsInYear + p.Month
	}
	slices.SortFunc(merged, func(a, b model.CreditCardPayment) int {
		return chronological(a) - chronological(b)
	})
	return merged
}

// unknownAccountError names the closest stored account, if any is close.
func unknownAccountError(account string, names []string) error {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, name := range names {
		d := levenshtein.ComputeDistance(strings.ToLower(account), strings.ToLower(name))
		if d < bestDistance {
			best, bestDistance = name, d
		}
	}

	msg := fmt.Sprintf("unknown account %q", account)
	if best != "" {
		msg += fmt.Sprintf(", did you mean %q?", best)
	}
	return common.NewUserError(msg, common.ErrNotFound)
}
