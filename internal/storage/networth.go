package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// SaveNetWorth replaces every stored net worth entry with entries.
func (s *SQLiteStorage) SaveNetWorth(ctx context.Context, entries []model.NetWorthEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNetWorth(entries); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceNetWorthTx(ctx, tx, entries)
	})
}

func replaceNetWorthTx(ctx context.Context, tx *sql.Tx, entries []model.NetWorthEntry) error {
	for _, table := range []string{"net_worth_values", "net_worth_entries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO net_worth_entries (id, date) VALUES (?, ?)`,
			entry.ID, formatDate(entry.Date)); err != nil {
			return fmt.Errorf("failed to save net worth entry %d: %w", entry.ID, err)
		}
		for _, value := range entry.Values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO net_worth_values (entry_id, subcategory, simple) VALUES (?, ?, ?)`,
				entry.ID, value.Subcategory, nullInt64(value.Simple)); err != nil {
				return fmt.Errorf("failed to save net worth value %d/%d: %w", entry.ID, value.Subcategory, err)
			}
		}
	}

	return nil
}

// LoadNetWorth returns every stored net worth entry ordered by date.
func (s *SQLiteStorage) LoadNetWorth(ctx context.Context) ([]model.NetWorthEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.date, v.subcategory, v.simple
		FROM net_worth_entries e
		LEFT JOIN net_worth_values v ON v.entry_id = e.id
		ORDER BY e.date, e.id, v.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query net worth: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.NetWorthEntry
	for rows.Next() {
		var (
			id          int
			date        string
			subcategory sql.NullInt64
			simple      sql.NullInt64
		)
		if err := rows.Scan(&id, &date, &subcategory, &simple); err != nil {
			return nil, fmt.Errorf("failed to scan net worth: %w", err)
		}

		if len(entries) == 0 || entries[len(entries)-1].ID != id {
			parsed, err := parseDate(date)
			if err != nil {
				return nil, err
			}
			entries = append(entries, model.NetWorthEntry{ID: id, Date: parsed})
		}

		if subcategory.Valid {
			entry := &entries[len(entries)-1]
			entry.Values = append(entry.Values, model.NetWorthValue{
				Subcategory: int(subcategory.Int64),
				Simple:      int64Ptr(simple),
			})
		}
	}

	return entries, rows.Err()
}
