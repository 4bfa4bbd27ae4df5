package planning

import (
	"fmt"
	"time"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// MonthsInYear is the number of months in a financial year.
const MonthsInYear = 12

// DefaultStartMonth is the calendar month (0-11) a financial year starts at: April.
const DefaultStartMonth = 3

// EndOfMonth returns the last instant of the calendar month containing t.
func EndOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// FinancialYear returns the financial year that the given calendar month
// (0-11) of the given calendar year falls in.
func FinancialYear(calendarYear, month, startMonth int) int {
	if month < startMonth {
		return calendarYear - 1
	}
	return calendarYear
}

// FinancialYearOf returns the financial year containing t.
func FinancialYearOf(t time.Time, startMonth int) int {
	return FinancialYear(t.Year(), int(t.Month())-1, startMonth)
}

// CalendarYear returns the calendar year of month (0-11) within financialYear.
func CalendarYear(financialYear, month, startMonth int) int {
	if month < startMonth {
		return financialYear + 1
	}
	return financialYear
}

// Months enumerates count consecutive months starting at startMonth of the
// given financial year. Each month's Date is the last instant of that month in UTC.
func Months(financialYear, startMonth, count int) []model.PlanningMonth {
	first := time.Date(financialYear, time.Month(startMonth+1), 1, 0, 0, 0, 0, time.UTC)
	return monthsFrom(first, startMonth, count)
}

// monthsFrom enumerates count consecutive months starting at the month containing first.
func monthsFrom(first time.Time, startMonth, count int) []model.PlanningMonth {
	first = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]model.PlanningMonth, 0, count)

	for i := 0; i < count; i++ {
		date := EndOfMonth(first.AddDate(0, i, 0))
		month := int(date.Month()) - 1
		months = append(months, model.PlanningMonth{
			Year:  FinancialYear(date.Year(), month, startMonth),
			Month: month,
			Date:  date,
		})
	}

	return months
}

// monthIndex orders calendar months: year*12 + month. It is used to compare
// dates at month granularity regardless of day or time zone.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func planningMonthIndex(m model.PlanningMonth) int {
	return monthIndex(m.Date)
}

// YearLabel renders a financial year as "2024-25".
func YearLabel(financialYear int) string {
	return fmt.Sprintf("%d-%02d", financialYear, (financialYear+1)%100)
}
