package planning

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

func cacheInput() Input {
	return Input{
		Today:         date(2024, time.June, 15),
		FinancialYear: 2024,
		State: model.State{
			Accounts: []model.AccountGroup{{
				Account:            "Current",
				ComputedStartValue: ptr[int64](1000),
				Income:             []model.Income{referenceIncome()},
			}},
			Parameters: []model.TaxParameters{testParameters(2024)},
		},
	}
}

func TestCacheHit(t *testing.T) {
	cache, err := NewCache(4, DefaultOptions())
	require.NoError(t, err)

	first, err := cache.Project(cacheInput())
	require.NoError(t, err)
	second, err := cache.Project(cacheInput())
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	assert.Same(t, &first[0], &second[0])

	direct, err := Project(cacheInput())
	require.NoError(t, err)
	assert.Equal(t, direct, first)

	overview, err := cache.Overview(cacheInput())
	require.NoError(t, err)
	assert.Equal(t, Overview(direct), overview)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheKey(t *testing.T) {
	cache, err := NewCache(8, DefaultOptions())
	require.NoError(t, err)

	_, err = cache.Project(cacheInput())
	require.NoError(t, err)

	sameMonth := cacheInput()
	sameMonth.Today = date(2024, time.June, 30)
	_, err = cache.Project(sameMonth)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len(), "today only matters to the month")

	nextMonth := cacheInput()
	nextMonth.Today = date(2024, time.July, 1)
	_, err = cache.Project(nextMonth)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	otherYear := cacheInput()
	otherYear.FinancialYear = 2023
	otherYear.State.Parameters = append(otherYear.State.Parameters, testParameters(2023))
	_, err = cache.Project(otherYear)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())
}

func TestCacheDistinguishesZeroFromUndefined(t *testing.T) {
	cache, err := NewCache(4, DefaultOptions())
	require.NoError(t, err)

	zero := Input{FinancialYear: 2024, State: model.State{Accounts: []model.AccountGroup{{
		Account:            "Current",
		ComputedStartValue: ptr[int64](0),
	}}}}
	undefined := Input{FinancialYear: 2024, State: model.State{Accounts: []model.AccountGroup{{
		Account: "Current",
	}}}}

	table, err := cache.Project(zero)
	require.NoError(t, err)
	assert.Equal(t, ptr[int64](0), table[0].Accounts[0].StartValue.ComputedValue)

	table, err = cache.Project(undefined)
	require.NoError(t, err)
	assert.Nil(t, table[0].Accounts[0].StartValue.ComputedValue)
}

func TestCacheErrors(t *testing.T) {
	_, err := NewCache(0, DefaultOptions())
	require.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewCache(4, Options{StartMonth: -1})
	require.ErrorIs(t, err, common.ErrInvalidConfig)

	cache, err := NewCache(4, DefaultOptions())
	require.NoError(t, err)

	in := cacheInput()
	in.State.Parameters = nil
	_, err = cache.Project(in)
	require.ErrorIs(t, err, common.ErrMalformedInput)
	assert.Zero(t, cache.Len())
}

func TestCacheConcurrentUse(t *testing.T) {
	cache, err := NewCache(4, DefaultOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := cache.Project(cacheInput())
			assert.NoError(t, err)
			assert.Len(t, table, MonthsInYear)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}
