package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidMonth     = errors.New("month must be between 0 and 11")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrInvalidNetWorth  = errors.New("invalid net worth entry")
	ErrDuplicateAccount = errors.New("duplicate account name")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateMonth(month int) error {
	if month < 0 || month > 11 {
		return fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	return nil
}

// validateSnapshot validates a snapshot before it replaces the stored one.
func validateSnapshot(snapshot *service.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParameter)
	}

	seen := make(map[string]bool, len(snapshot.State.Accounts))
	for i := range snapshot.State.Accounts {
		account := &snapshot.State.Accounts[i]
		if err := validateAccount(account); err != nil {
			return fmt.Errorf("account at index %d: %w", i, err)
		}
		if seen[account.Account] {
			return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Account)
		}
		seen[account.Account] = true
	}

	if err := validateNetWorth(snapshot.NetWorth); err != nil {
		return err
	}

	for i, card := range snapshot.CreditCards {
		if strings.TrimSpace(card.Name) == "" {
			return fmt.Errorf("credit card subcategory at index %d: %w: name", i, ErrEmptyString)
		}
	}

	return nil
}

// validateAccount validates a single account and everything scheduled against it.
func validateAccount(account *model.AccountGroup) error {
	if strings.TrimSpace(account.Account) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}

	for _, income := range account.Income {
		if income.StartDate.IsZero() || income.EndDate.IsZero() {
			return fmt.Errorf("%w: income is missing a start or end date", ErrInvalidAccount)
		}
	}
	for _, past := range account.PastIncome {
		if past.Date.IsZero() {
			return fmt.Errorf("%w: past income is missing a date", ErrInvalidAccount)
		}
	}
	for _, value := range account.Values {
		if err := validateMonth(value.Month); err != nil {
			return fmt.Errorf("value %d: %w", value.ID, err)
		}
	}
	for _, computed := range account.ComputedValues {
		if err := validateMonth(computed.Month); err != nil {
			return fmt.Errorf("computed value %s: %w", computed.Key, err)
		}
	}
	for _, card := range account.CreditCards {
		if err := validatePayments(card.Payments); err != nil {
			return fmt.Errorf("credit card %d: %w", card.NetWorthSubcategoryID, err)
		}
	}

	return nil
}

func validatePayments(payments []model.CreditCardPayment) error {
	for _, payment := range payments {
		if err := validateMonth(payment.Month); err != nil {
			return fmt.Errorf("payment %d/%d: %w", payment.Year, payment.Month, err)
		}
	}
	return nil
}

func validateNetWorth(entries []model.NetWorthEntry) error {
	ids := make(map[int]bool, len(entries))
	for i, entry := range entries {
		if entry.Date.IsZero() {
			return fmt.Errorf("%w: entry at index %d has no date", ErrInvalidNetWorth, i)
		}
		if ids[entry.ID] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidNetWorth, entry.ID)
		}
		ids[entry.ID] = true

		subcategories := make(map[int]bool, len(entry.Values))
		for _, value := range entry.Values {
			if subcategories[value.Subcategory] {
				return fmt.Errorf("%w: entry %d has subcategory %d twice", ErrInvalidNetWorth, entry.ID, value.Subcategory)
			}
			subcategories[value.Subcategory] = true
		}
	}
	return nil
}
