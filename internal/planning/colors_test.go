package planning

import (
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

func TestApplyColorScale(t *testing.T) {
	table := project(t, Input{
		Today:         date(2024, time.June, 1),
		FinancialYear: 2024,
		State: model.State{Accounts: []model.AccountGroup{{
			Account: "Current",
			Values: []model.Value{
				{ID: 1, Name: "Food", Year: 2024, Month: 3, Value: ptr[int64](-100)},
				{ID: 2, Name: "Food", Year: 2024, Month: 4, Value: ptr[int64](-50)},
				{ID: 3, Name: "Refund", Year: 2024, Month: 4, Value: ptr[int64](40)},
				{ID: 4, Name: "Nothing", Year: 2024, Month: 5, Value: ptr[int64](0)},
			},
		}}},
	})

	colored := ApplyColorScale(table)
	require.Len(t, colored, len(table))

	strongest := colored[0].Accounts[0].Transactions[0].Color
	weaker := colored[1].Accounts[0].Transactions[0].Color
	refund := colored[1].Accounts[0].Transactions[1].Color
	zero := colored[2].Accounts[0].Transactions[0].Color

	require.NotEmpty(t, strongest)
	require.NotEmpty(t, weaker)
	require.NotEmpty(t, refund)
	assert.Empty(t, zero)
	assert.NotEqual(t, strongest, weaker)

	strong, err := colorful.Hex(strongest)
	require.NoError(t, err)
	weak, err := colorful.Hex(weaker)
	require.NoError(t, err)
	assert.Less(t, strong.DistanceLab(expenseColor), weak.DistanceLab(expenseColor))

	green, err := colorful.Hex(refund)
	require.NoError(t, err)
	assert.Less(t, green.DistanceLab(incomeColor), green.DistanceLab(expenseColor))

	// The input table is left untouched.
	for _, month := range table {
		for _, txn := range month.Accounts[0].Transactions {
			assert.Empty(t, txn.Color)
		}
	}

	assert.Equal(t, colored, ApplyColorScale(table))
}

func TestApplyColorScaleEmpty(t *testing.T) {
	assert.Empty(t, ApplyColorScale(nil))
}
