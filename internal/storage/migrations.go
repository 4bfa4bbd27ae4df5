package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial planning schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					external_id INTEGER,
					position INTEGER NOT NULL,
					name TEXT UNIQUE NOT NULL,
					net_worth_subcategory_id INTEGER NOT NULL,
					computed_start_value INTEGER,
					previous_year_tax_relief INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS incomes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL,
					start_date TEXT NOT NULL,
					end_date TEXT NOT NULL,
					tax_code TEXT NOT NULL DEFAULT '',
					salary INTEGER NOT NULL,
					pension_contrib REAL NOT NULL DEFAULT 0,
					student_loan INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS past_incomes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL,
					date TEXT NOT NULL,
					gross INTEGER NOT NULL,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS deductions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					past_income_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					value INTEGER NOT NULL,
					FOREIGN KEY (past_income_id) REFERENCES past_incomes(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS account_values (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					value_id INTEGER NOT NULL,
					account_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					value INTEGER,
					formula TEXT,
					transfer_to_account_id INTEGER,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_account_values_month ON account_values(year, month)`,

				`CREATE TABLE IF NOT EXISTS tax_parameters (
					year INTEGER NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('rate', 'threshold')),
					name TEXT NOT NULL,
					value REAL NOT NULL,
					PRIMARY KEY (year, kind, name)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add credit cards and net worth",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS credit_card_subcategories (
					id INTEGER PRIMARY KEY,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS credit_cards (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL,
					net_worth_subcategory_id INTEGER NOT NULL,
					UNIQUE (account_id, net_worth_subcategory_id),
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS credit_card_payments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					credit_card_id INTEGER NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					value INTEGER NOT NULL,
					UNIQUE (credit_card_id, year, month),
					FOREIGN KEY (credit_card_id) REFERENCES credit_cards(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS net_worth_entries (
					id INTEGER PRIMARY KEY,
					date TEXT NOT NULL
				)`,
				`CREATE INDEX idx_net_worth_entries_date ON net_worth_entries(date)`,
				`CREATE TABLE IF NOT EXISTS net_worth_values (
					entry_id INTEGER NOT NULL,
					subcategory INTEGER NOT NULL,
					simple INTEGER,
					PRIMARY KEY (entry_id, subcategory),
					FOREIGN KEY (entry_id) REFERENCES net_worth_entries(id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add computed values and snapshot revisions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS computed_values (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL,
					key TEXT NOT NULL,
					name TEXT NOT NULL,
					month INTEGER NOT NULL,
					value INTEGER NOT NULL,
					is_verified INTEGER NOT NULL DEFAULT 0,
					is_transfer INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS revisions (
					id TEXT PRIMARY KEY,
					saved_at DATETIME NOT NULL,
					accounts INTEGER NOT NULL,
					net_worth_entries INTEGER NOT NULL
				)`,
				`CREATE INDEX idx_revisions_saved_at ON revisions(saved_at)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version mismatch: expected %d, got %d",
			common.ErrDatabaseCorrupted, ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
