package testutil

import (
	"time"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// TaxParameters returns a full set of rates and thresholds for year.
func TaxParameters(year int) model.TaxParameters {
	return model.TaxParameters{
		Year: year,
		Rates: []model.NamedValue{
			{Name: "IncomeTaxBasicRate", Value: 0.2},
			{Name: "IncomeTaxHigherRate", Value: 0.4},
			{Name: "IncomeTaxAdditionalRate", Value: 0.45},
			{Name: "NILowerRate", Value: 0.12},
			{Name: "NIHigherRate", Value: 0.02},
			{Name: "StudentLoanRate", Value: 0.09},
		},
		Thresholds: []model.NamedValue{
			{Name: "IncomeTaxBasicAllowance", Value: 1257000},
			{Name: "IncomeTaxHigherThreshold", Value: 4129000},
			{Name: "IncomeTaxAdditionalThreshold", Value: 12514000},
			{Name: "NIPT", Value: 956400},
			{Name: "NIUEL", Value: 5026800},
			{Name: "StudentLoanThreshold", Value: 2729500},
		},
	}
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Snapshot returns a small household for the 2024 financial year: a current
// account with a salary and a credit card, and a savings account fed by a
// monthly transfer.
func Snapshot() *service.Snapshot {
	currentID, savingsID := 1, 2
	transfer := int64(-50000)

	return &service.Snapshot{
		State: model.State{
			Accounts: []model.AccountGroup{
				{
					ID:                    &currentID,
					Account:               "Current",
					NetWorthSubcategoryID: 3,
					Income: []model.Income{{
						StartDate:      Date(2024, time.April, 1),
						EndDate:        Date(2025, time.March, 31),
						TaxCode:        "1257L",
						Salary:         8500000,
						PensionContrib: 0.03,
						StudentLoan:    true,
					}},
					Values: []model.Value{{
						ID:                  10,
						Name:                "Savings",
						Year:                2024,
						Month:               5,
						Value:               &transfer,
						TransferToAccountID: &savingsID,
					}},
					CreditCards: []model.CreditCard{{
						NetWorthSubcategoryID: 7,
						Payments: []model.CreditCardPayment{
							{Year: 2024, Month: 3, Value: -15628},
							{Year: 2024, Month: 4, Value: -20000},
						},
					}},
				},
				{
					ID:                    &savingsID,
					Account:               "Savings",
					NetWorthSubcategoryID: 4,
				},
			},
			Parameters: []model.TaxParameters{TaxParameters(2024)},
		},
		NetWorth: []model.NetWorthEntry{{
			ID:   1,
			Date: Date(2024, time.March, 31),
			Values: []model.NetWorthValue{
				{Subcategory: 3, Simple: ptr(500000)},
				{Subcategory: 4, Simple: ptr(1000000)},
			},
		}},
		CreditCards: []model.CreditCardSubcategory{{ID: 7, Name: "Amex"}},
	}
}

func ptr(v int64) *int64 { return &v }
