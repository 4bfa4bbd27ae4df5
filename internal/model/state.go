// Package model defines the planning domain types shared by the projection engine,
// the snapshot store, and the importers.
//
// Money is always an integer number of minor currency units (pence). Optional
// amounts are pointers; a nil amount means no value is available.
package model

import "time"

// NamedValue is a single named tax rate or threshold.
type NamedValue struct {
	Name  string
	Value float64
}

// TaxParameters holds the tax rates and thresholds that apply to one financial year.
// Thresholds are yearly amounts in minor units; rates are fractions.
type TaxParameters struct {
	Rates      []NamedValue
	Thresholds []NamedValue
	Year       int
}

// Income is a forward-looking salary record, valid for every month from
// StartDate to EndDate inclusive.
type Income struct {
	StartDate      time.Time
	EndDate        time.Time
	TaxCode        string
	Salary         int64 // yearly gross
	PensionContrib float64
	StudentLoan    bool
}

// Deduction is one itemised line of a recorded payslip.
type Deduction struct {
	Name  string
	Value int64
}

// PastIncome is a verified payslip.
type PastIncome struct {
	Date       time.Time
	Deductions []Deduction
	Gross      int64
}

// Value is a manual one-off transaction against an account. Year is the
// financial year and Month the calendar month (0-11).
type Value struct {
	Value               *int64
	Formula             *string
	TransferToAccountID *int
	Name                string
	ID                  int
	Year                int
	Month               int
}

// CreditCardPayment is a recorded payment towards a credit card, made from the
// owning account. Values are negative.
type CreditCardPayment struct {
	ID    int
	Year  int
	Month int
	Value int64
}

// CreditCard links an account to a credit card net worth subcategory.
type CreditCard struct {
	Payments              []CreditCardPayment
	ID                    int
	NetWorthSubcategoryID int
}

// ComputedValue is a transaction row computed upstream for a specific month.
type ComputedValue struct {
	Key        string
	Name       string
	Month      int
	Value      int64
	IsVerified bool
	IsTransfer bool
}

// AccountGroup is one tracked account together with everything scheduled against it.
type AccountGroup struct {
	ID                    *int
	ComputedStartValue    *int64
	Account               string
	Income                []Income
	PastIncome            []PastIncome
	Values                []Value
	CreditCards           []CreditCard
	ComputedValues        []ComputedValue
	NetWorthSubcategoryID int
	PreviousYearTaxRelief int64
}

// State is the externally owned planning state consumed by the engine.
type State struct {
	Accounts   []AccountGroup
	Parameters []TaxParameters
}

// NetWorthValue is a recorded balance for one subcategory. Only Simple is read.
type NetWorthValue struct {
	Simple      *int64
	Subcategory int
}

// NetWorthEntry is a net worth snapshot taken on Date.
type NetWorthEntry struct {
	Date   time.Time
	Values []NetWorthValue
	ID     int
}

// CreditCardSubcategory names a net worth subcategory that carries a credit limit.
type CreditCardSubcategory struct {
	Name string
	ID   int
}
