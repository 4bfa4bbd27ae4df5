package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func testSnapshot() *service.Snapshot {
	return &service.Snapshot{
		State: model.State{
			Accounts: []model.AccountGroup{
				{
					ID:                    ptr(1),
					Account:               "Current",
					NetWorthSubcategoryID: 3,
					ComputedStartValue:    ptr[int64](150000),
					PreviousYearTaxRelief: 12000,
					Income: []model.Income{{
						StartDate:      day(2024, time.April, 1),
						EndDate:        day(2025, time.March, 31),
						TaxCode:        "1257L",
						Salary:         8500000,
						PensionContrib: 0.03,
						StudentLoan:    true,
					}},
					PastIncome: []model.PastIncome{{
						Date:  day(2024, time.April, 25),
						Gross: 708333,
						Deductions: []model.Deduction{
							{Name: "Income tax", Value: -185067},
							{Name: "NI", Value: -46068},
						},
					}},
					Values: []model.Value{
						{ID: 10, Name: "Savings", Year: 2024, Month: 8, Value: ptr[int64](-120500), TransferToAccountID: ptr(2)},
						{ID: 11, Name: "Boiler", Year: 2024, Month: 9, Formula: ptr("75 * 30")},
					},
					ComputedValues: []model.ComputedValue{
						{Key: "isa-2024-5", Name: "ISA", Month: 5, Value: -2000, IsVerified: true},
					},
				},
				{
					ID:                    ptr(2),
					Account:               "Savings",
					NetWorthSubcategoryID: 4,
				},
				{
					Account:               "New account",
					NetWorthSubcategoryID: 5,
				},
			},
			Parameters: []model.TaxParameters{{
				Year:       2024,
				Rates:      []model.NamedValue{{Name: "IncomeTaxBasicRate", Value: 0.2}, {Name: "NILowerRate", Value: 0.12}},
				Thresholds: []model.NamedValue{{Name: "NIPT", Value: 956400}},
			}},
		},
		NetWorth: []model.NetWorthEntry{
			{ID: 2, Date: day(2024, time.June, 30), Values: []model.NetWorthValue{{Subcategory: 3, Simple: ptr[int64](450000)}}},
			{ID: 1, Date: day(2024, time.March, 31), Values: []model.NetWorthValue{
				{Subcategory: 4, Simple: ptr[int64](900000)},
				{Subcategory: 3},
			}},
		},
		CreditCards: []model.CreditCardSubcategory{{ID: 7, Name: "Amex"}},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	revision, err := store.SaveSnapshot(ctx, testSnapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, revision.ID)
	assert.Equal(t, 3, revision.Accounts)
	assert.Equal(t, 2, revision.NetWorthEntries)

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)

	want := testSnapshot()
	// Net worth comes back in date order.
	want.NetWorth[0], want.NetWorth[1] = want.NetWorth[1], want.NetWorth[0]

	assert.Equal(t, want.State, loaded.State)
	assert.Equal(t, want.NetWorth, loaded.NetWorth)
	assert.Equal(t, want.CreditCards, loaded.CreditCards)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first, err := store.SaveSnapshot(ctx, testSnapshot())
	require.NoError(t, err)

	smaller := &service.Snapshot{State: model.State{Accounts: []model.AccountGroup{{Account: "Only"}}}}
	second, err := store.SaveSnapshot(ctx, smaller)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.State.Accounts, 1)
	assert.Equal(t, "Only", loaded.State.Accounts[0].Account)
	assert.Empty(t, loaded.State.Parameters)
	assert.Empty(t, loaded.NetWorth)
	assert.Empty(t, loaded.CreditCards)

	latest, err := store.LatestRevision(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 1, latest.Accounts)
}

func TestLoadSnapshotEmpty(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.State.Accounts)

	_, err = store.LatestRevision(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveSnapshotValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*service.Snapshot)
		wantErr error
	}{
		{
			name:    "duplicate account",
			mutate:  func(s *service.Snapshot) { s.State.Accounts[1].Account = "Current" },
			wantErr: ErrDuplicateAccount,
		},
		{
			name:    "unnamed account",
			mutate:  func(s *service.Snapshot) { s.State.Accounts[0].Account = " " },
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "value month out of range",
			mutate:  func(s *service.Snapshot) { s.State.Accounts[0].Values[0].Month = 12 },
			wantErr: ErrInvalidMonth,
		},
		{
			name:    "income without dates",
			mutate:  func(s *service.Snapshot) { s.State.Accounts[0].Income[0].EndDate = time.Time{} },
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "undated net worth",
			mutate:  func(s *service.Snapshot) { s.NetWorth[0].Date = time.Time{} },
			wantErr: ErrInvalidNetWorth,
		},
		{
			name:    "duplicate net worth id",
			mutate:  func(s *service.Snapshot) { s.NetWorth[0].ID = s.NetWorth[1].ID },
			wantErr: ErrInvalidNetWorth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := testSnapshot()
			tt.mutate(snapshot)
			_, err := store.SaveSnapshot(ctx, snapshot)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := store.SaveSnapshot(ctx, nil)
	require.ErrorIs(t, err, ErrNilParameter)

	//nolint:staticcheck // nil context is the case under test
	_, err = store.SaveSnapshot(nil, testSnapshot())
	require.ErrorIs(t, err, ErrNilContext)
}

func TestNetWorth(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	entries := []model.NetWorthEntry{
		{ID: 5, Date: day(2024, time.May, 31), Values: []model.NetWorthValue{{Subcategory: 3, Simple: ptr[int64](1)}}},
		{ID: 4, Date: day(2024, time.April, 30)},
	}
	require.NoError(t, store.SaveNetWorth(ctx, entries))

	loaded, err := store.LoadNetWorth(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 4, loaded[0].ID)
	assert.Empty(t, loaded[0].Values)
	assert.Equal(t, entries[0], loaded[1])

	require.NoError(t, store.SaveNetWorth(ctx, nil))
	loaded, err = store.LoadNetWorth(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestAccountNames(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, testSnapshot())
	require.NoError(t, err)

	names, err := store.AccountNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Current", "Savings", "New account"}, names)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorageRequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	require.ErrorIs(t, err, ErrEmptyString)
}
