package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// AddCreditCardPayments records payments made from accountName towards the card
// in subcategoryID. A payment for a month that already has one replaces it.
func (s *SQLiteStorage) AddCreditCardPayments(ctx context.Context, accountName string, subcategoryID int, payments []model.CreditCardPayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountName, "accountName"); err != nil {
		return err
	}
	if len(payments) == 0 {
		return fmt.Errorf("%w: payments", ErrEmptySlice)
	}
	if err := validatePayments(payments); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var accountID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE name = ?`, accountName).Scan(&accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %q: %w", accountName, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to find account %q: %w", accountName, err)
		}

		cardID, err := ensureCreditCard(ctx, tx, accountID, subcategoryID)
		if err != nil {
			return err
		}
		return upsertPayments(ctx, tx, cardID, payments)
	})
	if err != nil {
		return err
	}

	slog.Debug("Recorded credit card payments",
		"account", accountName,
		"subcategory", subcategoryID,
		"count", len(payments))
	return nil
}

// ensureCreditCard returns the card linking an account to a subcategory, creating it if needed.
func ensureCreditCard(ctx context.Context, tx *sql.Tx, accountID int64, subcategoryID int) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_cards (account_id, net_worth_subcategory_id) VALUES (?, ?)
		ON CONFLICT (account_id, net_worth_subcategory_id) DO NOTHING`,
		accountID, subcategoryID); err != nil {
		return 0, fmt.Errorf("failed to save credit card: %w", err)
	}

	var cardID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM credit_cards WHERE account_id = ? AND net_worth_subcategory_id = ?`,
		accountID, subcategoryID).Scan(&cardID); err != nil {
		return 0, fmt.Errorf("failed to find credit card: %w", err)
	}

	return cardID, nil
}

func upsertPayments(ctx context.Context, tx *sql.Tx, cardID int64, payments []model.CreditCardPayment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO credit_card_payments (credit_card_id, year, month, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (credit_card_id, year, month) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("failed to prepare payment insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, payment := range payments {
		if _, err := stmt.ExecContext(ctx, cardID, payment.Year, payment.Month, payment.Value); err != nil {
			return fmt.Errorf("failed to save payment %d/%d: %w", payment.Year, payment.Month, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) loadCreditCards(ctx context.Context, byID map[int64]*model.AccountGroup) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.account_id, c.net_worth_subcategory_id, p.id, p.year, p.month, p.value
		FROM credit_cards c
		LEFT JOIN credit_card_payments p ON p.credit_card_id = c.id
		ORDER BY c.id, p.year, p.month`)
	if err != nil {
		return fmt.Errorf("failed to query credit cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lastID := int64(-1)
	var current *model.AccountGroup
	for rows.Next() {
		var (
			cardID, accountID int64
			subcategoryID     int
			paymentID         sql.NullInt64
			year, month       sql.NullInt64
			value             sql.NullInt64
		)
		if err := rows.Scan(&cardID, &accountID, &subcategoryID, &paymentID, &year, &month, &value); err != nil {
			return fmt.Errorf("failed to scan credit card: %w", err)
		}

		if cardID != lastID {
			if current, err = owner(byID, accountID); err != nil {
				return err
			}
			current.CreditCards = append(current.CreditCards, model.CreditCard{
				ID:                    int(cardID),
				NetWorthSubcategoryID: subcategoryID,
			})
			lastID = cardID
		}

		if paymentID.Valid {
			card := &current.CreditCards[len(current.CreditCards)-1]
			card.Payments = append(card.Payments, model.CreditCardPayment{
				ID:    int(paymentID.Int64),
				Year:  int(year.Int64),
				Month: int(month.Int64),
				Value: value.Int64,
			})
		}
	}

	return rows.Err()
}
