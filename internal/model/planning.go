package model

import "time"

// PlanningMonth identifies one month of a financial year. Year is the financial
// year, Month the calendar month (0-11) and Date the last instant of that month.
type PlanningMonth struct {
	Date  time.Time
	Year  int
	Month int
}

// AccountTransaction is one row of an account's monthly ledger.
type AccountTransaction struct {
	Value         *int64
	Formula       *string
	ComputedValue *int64
	Color         string
	ID            string
	Name          string
	IsComputed    bool
	IsVerified    bool
	IsTransfer    bool
}

// AccountCreditCardPayment is the payment made towards a card in a given month.
type AccountCreditCardPayment struct {
	Value                 *int64
	Name                  string
	NetWorthSubcategoryID int
	IsVerified            bool
}

// AccountValue marks the start or end balance of an account for a month.
type AccountValue struct {
	ComputedValue *int64
	ID            string
	Name          string
	IsComputed    bool
	IsVerified    bool
}

// MonthByAccount is the projected ledger of one account for one month.
type MonthByAccount struct {
	Transactions          []AccountTransaction
	CreditCards           []AccountCreditCardPayment
	StartValue            AccountValue
	EndValue              AccountValue
	AccountGroup          AccountGroup
	PreviousYearTaxRelief int64
}

// PlanningData is one projected month across all accounts.
type PlanningData struct {
	PlanningMonth
	Accounts       []MonthByAccount
	NumRows        int
	IsCurrentMonth bool
}

// OverviewRow is one named summary figure for a financial year.
type OverviewRow struct {
	Name   string
	Value  int64
	IsBold bool
}
