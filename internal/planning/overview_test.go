package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

func fixedRowNames() []string {
	return []string{
		GrossIncomeRow, TaxesRow, NIRow, StudentLoanRow, DisposableIncomeRow,
		InvestmentsRow, PensionRow, TaxReliefRow, CCSpendingRow,
	}
}

func TestOverviewEmpty(t *testing.T) {
	for _, table := range [][]model.PlanningData{nil, project(t, Input{FinancialYear: 2024})} {
		rows := Overview(table)
		require.Len(t, rows, 9)
		for i, row := range rows {
			assert.Equal(t, fixedRowNames()[i], row.Name)
			assert.Zero(t, row.Value, row.Name)
		}
		assert.True(t, rows[0].IsBold)
		assert.False(t, rows[1].IsBold)
		assert.True(t, rows[4].IsBold)
		assert.True(t, rows[5].IsBold)
		assert.True(t, rows[6].IsBold)
	}
}

func TestOverviewCustomRows(t *testing.T) {
	groceries := func(month int, value int64) model.Value {
		return model.Value{ID: month, Name: "Groceries", Year: 2024, Month: month, Value: ptr(value)}
	}

	tests := []struct {
		name   string
		values []model.Value
		want   []model.OverviewRow
	}{
		{
			name:   "three occurrences",
			values: []model.Value{groceries(3, -15623), groceries(4, -27310), groceries(5, -10032)},
			want:   []model.OverviewRow{{Name: "Groceries", Value: 52965}},
		},
		{
			name:   "two occurrences",
			values: []model.Value{groceries(3, -15623), groceries(4, -27310)},
			want:   nil,
		},
		{
			name: "sorted by name",
			values: []model.Value{
				{ID: 1, Name: "Rent", Year: 2024, Month: 3, Value: ptr[int64](-100)},
				{ID: 2, Name: "Rent", Year: 2024, Month: 4, Value: ptr[int64](-100)},
				{ID: 3, Name: "Rent", Year: 2024, Month: 5, Value: ptr[int64](-100)},
				groceries(6, 1), groceries(7, 2), groceries(8, 3),
			},
			want: []model.OverviewRow{{Name: "Groceries", Value: 6}, {Name: "Rent", Value: 300}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := project(t, Input{
				Today:         date(2024, time.June, 1),
				FinancialYear: 2024,
				State:         model.State{Accounts: []model.AccountGroup{{Account: "Current", Values: tt.values}}},
			})

			rows := Overview(table)
			require.Len(t, rows, 9+len(tt.want))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, rows[9:])
			}
		})
	}
}

func TestOverviewFixedRows(t *testing.T) {
	accounts := transferAccounts()
	accounts[0].Income = []model.Income{referenceIncome()}
	accounts[0].PreviousYearTaxRelief = 25000
	accounts[1].PreviousYearTaxRelief = 5000
	accounts[0].CreditCards = []model.CreditCard{{
		NetWorthSubcategoryID: 7,
		Payments:              []model.CreditCardPayment{{Year: 2024, Month: 3, Value: -1000}},
	}}
	for month := 0; month < 12; month++ {
		accounts[1].Values = append(accounts[1].Values,
			model.Value{ID: 100 + month, Name: "Investments", Year: 2024, Month: month, Value: ptr[int64](-5000)},
			model.Value{ID: 200 + month, Name: "Pension top-up", Year: 2024, Month: month, Value: ptr[int64](-100)},
		)
	}

	table := project(t, Input{
		Today:         date(2024, time.April, 15),
		FinancialYear: 2024,
		State: model.State{
			Accounts:   accounts,
			Parameters: []model.TaxParameters{testParameters(2024)},
		},
	})

	rows := Overview(table)
	values := make(map[string]int64, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}

	assert.Equal(t, int64(708333*12), values[GrossIncomeRow])
	assert.Equal(t, int64(185067*12), values[TaxesRow])
	assert.Equal(t, int64(46068*12), values[NIRow])
	assert.Equal(t, int64(41366*12), values[StudentLoanRow])
	assert.Equal(t, int64((708333-185067-46068-41366)*12), values[DisposableIncomeRow])
	assert.Equal(t, int64(5000*12), values[InvestmentsRow])
	assert.Equal(t, int64((21250+100)*12), values[PensionRow])
	assert.Equal(t, int64(30000), values[TaxReliefRow])
	assert.Equal(t, int64(1000*12), values[CCSpendingRow])

	// Transfers and one-off values never become custom rows.
	assert.Len(t, rows, 9)
}
