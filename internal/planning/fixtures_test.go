package planning

import (
	"time"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// testParameters returns tax parameters that reproduce the reference payslip.
func testParameters(year int) model.TaxParameters {
	return model.TaxParameters{
		Year: year,
		Rates: []model.NamedValue{
			{Name: string(IncomeTaxBasicRate), Value: 0.2},
			{Name: string(IncomeTaxHigherRate), Value: 0.4},
			{Name: string(IncomeTaxAdditionalRate), Value: 0.45},
			{Name: string(NILowerRate), Value: 0.12},
			{Name: string(NIHigherRate), Value: 0.02},
			{Name: string(StudentLoanRate), Value: 0.09},
		},
		Thresholds: []model.NamedValue{
			{Name: string(IncomeTaxBasicAllowance), Value: 1257000},
			{Name: string(IncomeTaxHigherThreshold), Value: 4129000},
			{Name: string(IncomeTaxAdditionalThreshold), Value: 12514000},
			{Name: string(NIPaymentThreshold), Value: 956400},
			{Name: string(NIUpperEarningsLimit), Value: 5026800},
			{Name: string(StudentLoanThreshold), Value: 2729500},
		},
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func referenceIncome() model.Income {
	return model.Income{
		StartDate:      date(2024, time.April, 1),
		EndDate:        date(2025, time.March, 31),
		Salary:         8500000,
		PensionContrib: 0.03,
		StudentLoan:    true,
	}
}
