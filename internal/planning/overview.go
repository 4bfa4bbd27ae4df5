package planning

import (
	"regexp"
	"slices"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Overview row names.
const (
	GrossIncomeRow      = "Gross income"
	TaxesRow            = "Taxes"
	NIRow               = "NI"
	StudentLoanRow      = "Student loan"
	DisposableIncomeRow = "Disposable income"
	InvestmentsRow      = "Investments"
	PensionRow          = "Pension contributions"
	TaxReliefRow        = "Tax relief from previous year"
	CCSpendingRow       = "CC spending"
)

// InvestmentsName is the transaction name counted as an investment.
const InvestmentsName = "Investments"

// customRowMinOccurrences is exclusive: a name must appear more often to get a row.
const customRowMinOccurrences = 2

var pensionPattern = regexp.MustCompile(`^Pension`)

// isFixedRowName reports whether transactions with this name are already
// counted by one of the fixed overview rows.
func isFixedRowName(name string) bool {
	switch name {
	case SalaryName, IncomeTaxName, NIName, StudentLoanName, InvestmentsName:
		return true
	}
	return pensionPattern.MatchString(name)
}

type customTotal struct {
	sum         int64
	occurrences int
}

// Overview summarises a projected year. Fixed rows always appear, in a fixed
// order, followed by recurring custom rows sorted by name.
func Overview(table []model.PlanningData) []model.OverviewRow {
	var gross, taxes, ni, studentLoan, investments, pension, relief, ccSpending int64
	custom := make(map[string]*customTotal)

	for i, month := range table {
		for _, account := range month.Accounts {
			if i == 0 {
				relief += account.PreviousYearTaxRelief
			}

			for _, card := range account.CreditCards {
				if card.Value != nil {
					ccSpending -= *card.Value
				}
			}

			for _, txn := range account.Transactions {
				var value int64
				if txn.ComputedValue != nil {
					value = *txn.ComputedValue
				}

				switch {
				case txn.Name == SalaryName:
					gross += value
				case txn.Name == IncomeTaxName:
					taxes -= value
				case txn.Name == NIName:
					ni -= value
				case txn.Name == StudentLoanName:
					studentLoan -= value
				case txn.Name == InvestmentsName:
					investments -= value
				case pensionPattern.MatchString(txn.Name):
					pension -= value
				}

				if txn.IsTransfer || isFixedRowName(txn.Name) {
					continue
				}
				total, ok := custom[txn.Name]
				if !ok {
					total = &customTotal{}
					custom[txn.Name] = total
				}
				total.sum += value
				total.occurrences++
			}
		}
	}

	rows := []model.OverviewRow{
		{Name: GrossIncomeRow, Value: gross, IsBold: true},
		{Name: TaxesRow, Value: taxes},
		{Name: NIRow, Value: ni},
		{Name: StudentLoanRow, Value: studentLoan},
		{Name: DisposableIncomeRow, Value: gross - taxes - ni - studentLoan, IsBold: true},
		{Name: InvestmentsRow, Value: investments, IsBold: true},
		{Name: PensionRow, Value: pension, IsBold: true},
		{Name: TaxReliefRow, Value: relief},
		{Name: CCSpendingRow, Value: ccSpending},
	}

	names := make([]string, 0, len(custom))
	for name, total := range custom {
		if total.occurrences > customRowMinOccurrences {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		sum := custom[name].sum
		if sum < 0 {
			sum = -sum
		}
		rows = append(rows, model.OverviewRow{Name: name, Value: sum})
	}

	return rows
}
