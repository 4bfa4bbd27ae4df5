package main

import (
	"fmt"
	"log/slog"

	"filippo.io/age"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-plan-must-flow/internal/cli"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
	"github.com/Veraticus/the-plan-must-flow/internal/snapshot"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <snapshot>",
		Short: "Replace the stored planning state with a snapshot file",
		Long: `Import a planning snapshot (accounts, incomes, payslips, values, credit
cards, tax parameters and net worth history) from a YAML or TOML file.

Files ending in .age are decrypted first, with an identity file or a passphrase.

Examples:
  plan import ~/plan/2024.yaml
  plan import ~/plan/2024.toml.age --identity ~/.config/plan/key.txt
  plan import ~/plan/2024.yaml.age --passphrase`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("identity", "", "age identity file used to decrypt .age snapshots")
	cmd.Flags().Bool("passphrase", false, "prompt for the passphrase of a .age snapshot")
	cmd.Flags().BoolP("dry-run", "d", false, "validate the snapshot without saving it")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	identityFile, _ := cmd.Flags().GetString("identity")
	passphrase, _ := cmd.Flags().GetBool("passphrase")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	identities, err := loadIdentities(identityFile, passphrase)
	if err != nil {
		return err
	}

	snap, err := snapshot.Load(args[0], snapshot.Options{Identities: identities})
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	slog.Info("Read snapshot",
		"file", args[0],
		"accounts", len(snap.State.Accounts),
		"tax_years", len(snap.State.Parameters),
		"net_worth_entries", len(snap.NetWorth))

	out := cmd.OutOrStdout()
	if dryRun {
		_, err := fmt.Fprintln(out, cli.FormatInfo(summarize(snap)+" (dry run, nothing saved)"))
		return err
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

	revision, err := store.SaveSnapshot(cmd.Context(), snap)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s as revision %s", summarize(snap), revision.ID)))
	return err
}

func summarize(snap *service.Snapshot) string {
	return fmt.Sprintf("Imported %d accounts, %d tax years and %d net worth entries",
		len(snap.State.Accounts), len(snap.State.Parameters), len(snap.NetWorth))
}

func dumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Write the stored planning state to a snapshot file",
		Long: `Write the stored planning state to a YAML or TOML snapshot, chosen by the
file extension. Files ending in .age are encrypted to the given recipients or
to a passphrase.

Examples:
  plan dump backup.yaml
  plan dump backup.toml.age --recipient age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p`,
		Args: cobra.ExactArgs(1),
		RunE: runDump,
	}

	cmd.Flags().StringSlice("recipient", nil, "age public key to encrypt .age snapshots to (repeatable)")
	cmd.Flags().Bool("passphrase", false, "encrypt .age snapshots with a prompted passphrase")

	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	keys, _ := cmd.Flags().GetStringSlice("recipient")
	passphrase, _ := cmd.Flags().GetBool("passphrase")

	cfg, err := loadPlanningConfig()
	if err != nil {
		return err
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

	_, encrypted, err := snapshot.FormatOf(args[0])
	if err != nil {
		return err
	}

	var recipients []age.Recipient
	if encrypted {
		if recipients, err = parseRecipients(keys, passphrase); err != nil {
			return err
		}
	}

	if err := snapshot.Save(args[0], snap, recipients...); err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d accounts to %s", len(snap.State.Accounts), args[0])))
	return err
}
