package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

func transferAccounts() []model.AccountGroup {
	return []model.AccountGroup{
		{
			ID:      ptr(1),
			Account: "Current",
			Values: []model.Value{
				{ID: 10, Name: "Savings", Year: 2024, Month: 8, Value: ptr[int64](-120500), TransferToAccountID: ptr(2)},
				{ID: 11, Name: "Rent", Year: 2024, Month: 8, Value: ptr[int64](-90000)},
				{ID: 12, Name: "Lost", Year: 2024, Month: 8, Value: ptr[int64](-500), TransferToAccountID: ptr(99)},
			},
		},
		{ID: ptr(2), Account: "Savings"},
	}
}

func TestResolveTransfers(t *testing.T) {
	september := Months(2024, DefaultStartMonth, MonthsInYear)[5]
	require.Equal(t, 8, september.Month)

	tests := []struct {
		name     string
		today    time.Time
		verified bool
	}{
		{name: "past month is verified", today: date(2024, time.October, 14), verified: true},
		{name: "current month is verified", today: date(2024, time.September, 1), verified: true},
		{name: "future month is predicted", today: date(2024, time.August, 31), verified: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirrored := ResolveTransfers(transferAccounts(), september, monthIndex(tt.today))

			assert.Empty(t, mirrored[0])
			require.Len(t, mirrored[1], 1)
			assert.Equal(t, model.AccountTransaction{
				ID:            "10-transfer-to",
				Name:          "Current transfer",
				ComputedValue: ptr[int64](120500),
				IsComputed:    true,
				IsVerified:    tt.verified,
				IsTransfer:    true,
			}, mirrored[1][0])
		})
	}
}

func TestResolveTransfersOtherMonths(t *testing.T) {
	august := Months(2024, DefaultStartMonth, MonthsInYear)[4]
	assert.Empty(t, ResolveTransfers(transferAccounts(), august, monthIndex(date(2024, time.October, 1))))
}

func TestResolveTransfersFormula(t *testing.T) {
	accounts := transferAccounts()
	accounts[0].Values = []model.Value{
		{ID: 20, Year: 2024, Month: 8, Formula: ptr("-100 * 12"), TransferToAccountID: ptr(2)},
		{ID: 21, Year: 2024, Month: 8, Formula: ptr("nonsense"), TransferToAccountID: ptr(2)},
	}
	september := Months(2024, DefaultStartMonth, MonthsInYear)[5]

	mirrored := ResolveTransfers(accounts, september, 0)
	require.Len(t, mirrored[1], 2)
	assert.Equal(t, ptr[int64](1200), mirrored[1][0].ComputedValue)
	assert.Nil(t, mirrored[1][1].ComputedValue)
	assert.False(t, mirrored[1][0].IsVerified)
}
