package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// Tax parameter kinds.
const (
	kindRate      = "rate"
	kindThreshold = "threshold"
)

// snapshotTables are cleared, children first, before a snapshot is written.
var snapshotTables = []string{
	"computed_values",
	"credit_card_payments",
	"credit_cards",
	"account_values",
	"deductions",
	"past_incomes",
	"incomes",
	"accounts",
	"tax_parameters",
	"credit_card_subcategories",
}

// SaveSnapshot replaces the stored planning state with snapshot and records a new revision.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snapshot *service.Snapshot) (*service.Revision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}

	revision := &service.Revision{
		ID:              uuid.New().String(),
		SavedAt:         time.Now().UTC(),
		Accounts:        len(snapshot.State.Accounts),
		NetWorthEntries: len(snapshot.NetWorth),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range snapshotTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for position := range snapshot.State.Accounts {
			if err := insertAccount(ctx, tx, position, &snapshot.State.Accounts[position]); err != nil {
				return err
			}
		}

		for _, params := range snapshot.State.Parameters {
			if err := insertTaxParameters(ctx, tx, params); err != nil {
				return err
			}
		}

		for _, card := range snapshot.CreditCards {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credit_card_subcategories (id, name) VALUES (?, ?)`,
				card.ID, card.Name); err != nil {
				return fmt.Errorf("failed to save credit card subcategory %q: %w", card.Name, err)
			}
		}

		if err := replaceNetWorthTx(ctx, tx, snapshot.NetWorth); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO revisions (id, saved_at, accounts, net_worth_entries) VALUES (?, ?, ?, ?)`,
			revision.ID, revision.SavedAt, revision.Accounts, revision.NetWorthEntries); err != nil {
			return fmt.Errorf("failed to record revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Saved planning snapshot",
		"revision", revision.ID,
		"accounts", revision.Accounts,
		"net_worth_entries", revision.NetWorthEntries)

	return revision, nil
}

func insertAccount(ctx context.Context, tx *sql.Tx, position int, account *model.AccountGroup) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (external_id, position, name, net_worth_subcategory_id, computed_start_value, previous_year_tax_relief)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt(account.ID), position, account.Account, account.NetWorthSubcategoryID,
		nullInt64(account.ComputedStartValue), account.PreviousYearTaxRelief)
	if err != nil {
		return fmt.Errorf("failed to save account %q: %w", account.Account, err)
	}

	accountID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}

	for _, income := range account.Income {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incomes (account_id, start_date, end_date, tax_code, salary, pension_contrib, student_loan)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			accountID, formatDate(income.StartDate), formatDate(income.EndDate), income.TaxCode,
			income.Salary, income.PensionContrib, income.StudentLoan); err != nil {
			return fmt.Errorf("failed to save income for %q: %w", account.Account, err)
		}
	}

	for _, past := range account.PastIncome {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO past_incomes (account_id, date, gross) VALUES (?, ?, ?)`,
			accountID, formatDate(past.Date), past.Gross)
		if err != nil {
			return fmt.Errorf("failed to save past income for %q: %w", account.Account, err)
		}
		pastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get past income id: %w", err)
		}
		for _, deduction := range past.Deductions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO deductions (past_income_id, name, value) VALUES (?, ?, ?)`,
				pastID, deduction.Name, deduction.Value); err != nil {
				return fmt.Errorf("failed to save deduction %q: %w", deduction.Name, err)
			}
		}
	}

	for _, value := range account.Values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO account_values (value_id, account_id, name, year, month, value, formula, transfer_to_account_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			value.ID, accountID, value.Name, value.Year, value.Month,
			nullInt64(value.Value), nullString(value.Formula), nullInt(value.TransferToAccountID)); err != nil {
			return fmt.Errorf("failed to save value %d: %w", value.ID, err)
		}
	}

	for _, card := range account.CreditCards {
		cardID, err := ensureCreditCard(ctx, tx, accountID, card.NetWorthSubcategoryID)
		if err != nil {
			return err
		}
		if err := upsertPayments(ctx, tx, cardID, card.Payments); err != nil {
			return err
		}
	}

	for _, computed := range account.ComputedValues {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO computed_values (account_id, key, name, month, value, is_verified, is_transfer)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			accountID, computed.Key, computed.Name, computed.Month, computed.Value,
			computed.IsVerified, computed.IsTransfer); err != nil {
			return fmt.Errorf("failed to save computed value %q: %w", computed.Key, err)
		}
	}

	return nil
}

func insertTaxParameters(ctx context.Context, tx *sql.Tx, params model.TaxParameters) error {
	insert := func(kind string, values []model.NamedValue) error {
		for _, named := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tax_parameters (year, kind, name, value) VALUES (?, ?, ?, ?)`,
				params.Year, kind, named.Name, named.Value); err != nil {
				return fmt.Errorf("failed to save %s %s for %d: %w", kind, named.Name, params.Year, err)
			}
		}
		return nil
	}

	if err := insert(kindRate, params.Rates); err != nil {
		return err
	}
	return insert(kindThreshold, params.Thresholds)
}

// LoadSnapshot reads the stored planning state. An empty database yields an empty snapshot.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context) (*service.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	accounts, byID, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	loaders := []func(context.Context, map[int64]*model.AccountGroup) error{
		s.loadIncomes,
		s.loadPastIncomes,
		s.loadValues,
		s.loadCreditCards,
		s.loadComputedValues,
	}
	for _, load := range loaders {
		if err := load(ctx, byID); err != nil {
			return nil, err
		}
	}

	parameters, err := s.loadTaxParameters(ctx)
	if err != nil {
		return nil, err
	}

	netWorth, err := s.LoadNetWorth(ctx)
	if err != nil {
		return nil, err
	}

	cards, err := s.loadCreditCardSubcategories(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &service.Snapshot{
		State:       model.State{Parameters: parameters},
		NetWorth:    netWorth,
		CreditCards: cards,
	}
	for _, account := range accounts {
		snapshot.State.Accounts = append(snapshot.State.Accounts, *account)
	}

	return snapshot, nil
}

func (s *SQLiteStorage) loadAccounts(ctx context.Context) ([]*model.AccountGroup, map[int64]*model.AccountGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, name, net_worth_subcategory_id, computed_start_value, previous_year_tax_relief
		FROM accounts ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []*model.AccountGroup
	byID := make(map[int64]*model.AccountGroup)
	for rows.Next() {
		var (
			id         int64
			externalID sql.NullInt64
			start      sql.NullInt64
			account    model.AccountGroup
		)
		if err := rows.Scan(&id, &externalID, &account.Account, &account.NetWorthSubcategoryID, &start, &account.PreviousYearTaxRelief); err != nil {
			return nil, nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.ID = intPtr(externalID)
		account.ComputedStartValue = int64Ptr(start)

		accounts = append(accounts, &account)
		byID[id] = &account
	}

	return accounts, byID, rows.Err()
}

func (s *SQLiteStorage) loadIncomes(ctx context.Context, byID map[int64]*model.AccountGroup) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, start_date, end_date, tax_code, salary, pension_contrib, student_loan
		FROM incomes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query incomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			accountID  int64
			start, end string
			income     model.Income
		)
		if err := rows.Scan(&accountID, &start, &end, &income.TaxCode, &income.Salary, &income.PensionContrib, &income.StudentLoan); err != nil {
			return fmt.Errorf("failed to scan income: %w", err)
		}
		if income.StartDate, err = parseDate(start); err != nil {
			return err
		}
		if income.EndDate, err = parseDate(end); err != nil {
			return err
		}

		account, err := owner(byID, accountID)
		if err != nil {
			return err
		}
		account.Income = append(account.Income, income)
	}

	return rows.Err()
}

func (s *SQLiteStorage) loadPastIncomes(ctx context.Context, byID map[int64]*model.AccountGroup) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.account_id, p.date, p.gross, d.name, d.value
		FROM past_incomes p
		LEFT JOIN deductions d ON d.past_income_id = p.id
		ORDER BY p.id, d.id`)
	if err != nil {
		return fmt.Errorf("failed to query past incomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lastID := int64(-1)
	var current *model.AccountGroup
	for rows.Next() {
		var (
			id, accountID int64
			date          string
			gross         int64
			name          sql.NullString
			value         sql.NullInt64
		)
		if err := rows.Scan(&id, &accountID, &date, &gross, &name, &value); err != nil {
			return fmt.Errorf("failed to scan past income: %w", err)
		}

		if id != lastID {
			parsed, err := parseDate(date)
			if err != nil {
				return err
			}
			if current, err = owner(byID, accountID); err != nil {
				return err
			}
			current.PastIncome = append(current.PastIncome, model.PastIncome{Date: parsed, Gross: gross})
			lastID = id
		}

		if name.Valid {
			past := &current.PastIncome[len(current.PastIncome)-1]
			past.Deductions = append(past.Deductions, model.Deduction{Name: name.String, Value: value.Int64})
		}
	}

	return rows.Err()
}

func (s *SQLiteStorage) loadValues(ctx context.Context, byID map[int64]*model.AccountGroup) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value_id, account_id, name, year, month, value, formula, transfer_to_account_id
		FROM account_values ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			accountID  int64
			amount     sql.NullInt64
			formula    sql.NullString
			transferTo sql.NullInt64
			value      model.Value
		)
		if err := rows.Scan(&value.ID, &accountID, &value.Name, &value.Year, &value.Month, &amount, &formula, &transferTo); err != nil {
			return fmt.Errorf("failed to scan value: %w", err)
		}
		value.Value = int64Ptr(amount)
		value.Formula = stringPtr(formula)
		value.TransferToAccountID = intPtr(transferTo)

		account, err := owner(byID, accountID)
		if err != nil {
			return err
		}
		account.Values = append(account.Values, value)
	}

	return rows.Err()
}

func (s *SQLiteStorage) loadComputedValues(ctx context.Context, byID map[int64]*model.AccountGroup) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, key, name, month, value, is_verified, is_transfer
		FROM computed_values ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query computed values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			accountID int64
			computed  model.ComputedValue
		)
		if err := rows.Scan(&accountID, &computed.Key, &computed.Name, &computed.Month, &computed.Value, &computed.IsVerified, &computed.IsTransfer); err != nil {
			return fmt.Errorf("failed to scan computed value: %w", err)
		}

		account, err := owner(byID, accountID)
		if err != nil {
			return err
		}
		account.ComputedValues = append(account.ComputedValues, computed)
	}

	return rows.Err()
}

func (s *SQLiteStorage) loadTaxParameters(ctx context.Context) ([]model.TaxParameters, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, kind, name, value FROM tax_parameters ORDER BY year, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var parameters []model.TaxParameters
	for rows.Next() {
		var (
			year       int
			kind, name string
			value      float64
		)
		if err := rows.Scan(&year, &kind, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan tax parameter: %w", err)
		}

		if len(parameters) == 0 || parameters[len(parameters)-1].Year != year {
			parameters = append(parameters, model.TaxParameters{Year: year})
		}
		params := &parameters[len(parameters)-1]

		named := model.NamedValue{Name: name, Value: value}
		if kind == kindRate {
			params.Rates = append(params.Rates, named)
		} else {
			params.Thresholds = append(params.Thresholds, named)
		}
	}

	return parameters, rows.Err()
}

func (s *SQLiteStorage) loadCreditCardSubcategories(ctx context.Context) ([]model.CreditCardSubcategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM credit_card_subcategories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit card subcategories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []model.CreditCardSubcategory
	for rows.Next() {
		var card model.CreditCardSubcategory
		if err := rows.Scan(&card.ID, &card.Name); err != nil {
			return nil, fmt.Errorf("failed to scan credit card subcategory: %w", err)
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// LatestRevision returns the most recently saved revision.
func (s *SQLiteStorage) LatestRevision(ctx context.Context) (*service.Revision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var revision service.Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT id, saved_at, accounts, net_worth_entries
		FROM revisions ORDER BY saved_at DESC, rowid DESC LIMIT 1`).
		Scan(&revision.ID, &revision.SavedAt, &revision.Accounts, &revision.NetWorthEntries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot has been saved", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}

	return &revision, nil
}

// AccountNames lists stored account names in display order.
func (s *SQLiteStorage) AccountNames(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan account name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func owner(byID map[int64]*model.AccountGroup, accountID int64) (*model.AccountGroup, error) {
	account, ok := byID[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: row references missing account %d", common.ErrDatabaseCorrupted, accountID)
	}
	return account, nil
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid stored date %q: %w", common.ErrDatabaseCorrupted, s, err)
	}
	return t, nil
}
