package planning

import (
	"math"
	"slices"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Median returns the statistical median of values, or nil when values is empty.
// With an even number of values the mean of the two middle values is rounded
// half away from zero.
func Median(values []int64) *int64 {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return ptr(sorted[mid])
	}

	mean := math.Round((float64(sorted[mid-1]) + float64(sorted[mid])) / 2)
	return ptr(int64(mean))
}

// cardHistory collects every recorded payment for each credit card
// subcategory, across all accounts, keyed by month.
type cardHistory struct {
	// payments[subcategory][monthKey][account index]
	payments   map[int]map[int]map[int]int64
	startMonth int
}

func newCardHistory(accounts []model.AccountGroup, startMonth int) *cardHistory {
	h := &cardHistory{
		payments:   make(map[int]map[int]map[int]int64),
		startMonth: startMonth,
	}

	for accountIndex, account := range accounts {
		for _, card := range account.CreditCards {
			byMonth, ok := h.payments[card.NetWorthSubcategoryID]
			if !ok {
				byMonth = make(map[int]map[int]int64)
				h.payments[card.NetWorthSubcategoryID] = byMonth
			}
			for _, payment := range card.Payments {
				key := h.key(payment.Year, payment.Month)
				if byMonth[key] == nil {
					byMonth[key] = make(map[int]int64)
				}
				byMonth[key][accountIndex] += payment.Value
			}
		}
	}

	return h
}

func (h *cardHistory) key(financialYear, month int) int {
	return CalendarYear(financialYear, month, h.startMonth)*12 + month
}

// recorded returns the payment recorded against a card by one account in a month.
func (h *cardHistory) recorded(subcategoryID, accountIndex int, month model.PlanningMonth) (int64, bool) {
	value, ok := h.payments[subcategoryID][planningMonthIndex(month)][accountIndex]
	return value, ok
}

// predict is the median of every recorded payment towards a card in months at
// or before todayIndex.
func (h *cardHistory) predict(subcategoryID int, todayIndex int) *int64 {
	var history []int64
	for key, byAccount := range h.payments[subcategoryID] {
		if key > todayIndex {
			continue
		}
		for _, value := range byAccount {
			history = append(history, value)
		}
	}
	return Median(history)
}

// PredictCreditCardPayment returns the median of payments made at or before
// today's month, or nil when there is no such payment.
func PredictCreditCardPayment(payments []model.CreditCardPayment, today model.PlanningMonth, startMonth int) *int64 {
	todayIndex := planningMonthIndex(today)
	history := make([]int64, 0, len(payments))
	for _, payment := range payments {
		key := CalendarYear(payment.Year, payment.Month, startMonth)*12 + payment.Month
		if key <= todayIndex {
			history = append(history, payment.Value)
		}
	}
	return Median(history)
}

// creditCardsForMonth builds the card payment rows of one account for one month.
// Recorded payments are verified. Months after today use the predicted median;
// earlier months without a recorded payment have no value.
func creditCardsForMonth(
	h *cardHistory,
	names map[int]string,
	predictions map[int]*int64,
	account model.AccountGroup,
	accountIndex int,
	month model.PlanningMonth,
	todayIndex int,
) []model.AccountCreditCardPayment {
	if len(account.CreditCards) == 0 {
		return nil
	}

	rows := make([]model.AccountCreditCardPayment, 0, len(account.CreditCards))
	for _, card := range account.CreditCards {
		row := model.AccountCreditCardPayment{
			NetWorthSubcategoryID: card.NetWorthSubcategoryID,
			Name:                  names[card.NetWorthSubcategoryID],
		}

		if value, ok := h.recorded(card.NetWorthSubcategoryID, accountIndex, month); ok {
			row.Value = ptr(value)
			row.IsVerified = true
		} else if planningMonthIndex(month) > todayIndex {
			if predicted := predictions[card.NetWorthSubcategoryID]; predicted != nil {
				row.Value = ptr(*predicted)
			}
		}

		rows = append(rows, row)
	}

	return rows
}

func ptr[T any](v T) *T {
	return &v
}
