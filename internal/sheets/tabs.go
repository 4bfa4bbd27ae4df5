package sheets

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// tab is the content of one worksheet. Money columns are [moneyFrom, moneyTo).
type tab struct {
	title     string
	values    [][]any
	bold      []int
	moneyFrom int
	moneyTo   int
}

func (t tab) width() int {
	width := 0
	for _, row := range t.values {
		width = max(width, len(row))
	}
	return width
}

func buildTabs(report *service.PlanningReport) []tab {
	label := planning.YearLabel(report.Year)
	return []tab{
		overviewTab(label, report.Overview),
		balancesTab(label, report.Months),
		ledgerTab(label, report.Months),
	}
}

// money converts minor units to the amount a sheet displays. The API takes
// JSON numbers, so the exact decimal is only made a float here.
func money(v int64) any {
	return decimal.NewFromInt(v).Shift(-2).InexactFloat64()
}

func optionalMoney(v *int64) any {
	if v == nil {
		return ""
	}
	return money(*v)
}

func overviewTab(label string, rows []model.OverviewRow) tab {
	t := tab{
		title:     "Overview " + label,
		values:    [][]any{{"Financial year", label}},
		bold:      []int{0},
		moneyFrom: 1,
		moneyTo:   2,
	}
	for _, row := range rows {
		if row.IsBold {
			t.bold = append(t.bold, len(t.values))
		}
		t.values = append(t.values, []any{row.Name, money(row.Value)})
	}
	return t
}

// balancesTab has one row per account with its end balance for each month,
// followed by the total of the balances that are known.
func balancesTab(label string, months []model.PlanningData) tab {
	header := []any{"Account"}
	for _, m := range months {
		header = append(header, m.Date.Format("Jan 2006"))
	}

	t := tab{
		title:     "Balances " + label,
		values:    [][]any{header},
		bold:      []int{0},
		moneyFrom: 1,
		moneyTo:   len(months) + 1,
	}

	accounts := len(months[0].Accounts)
	totals := make([]int64, len(months))
	for a := range accounts {
		row := []any{months[0].Accounts[a].AccountGroup.Account}
		for i, m := range months {
			end := m.Accounts[a].EndValue.ComputedValue
			if end != nil {
				totals[i] += *end
			}
			row = append(row, optionalMoney(end))
		}
		t.values = append(t.values, row)
	}

	total := []any{"Total"}
	for _, v := range totals {
		total = append(total, money(v))
	}
	t.bold = append(t.bold, len(t.values))
	t.values = append(t.values, total)

	return t
}

// ledgerTab lists every transaction and card payment of the year.
func ledgerTab(label string, months []model.PlanningData) tab {
	t := tab{
		title:     "Ledger " + label,
		values:    [][]any{{"Month", "Account", "Transaction", "Value", "Verified", "Transfer"}},
		bold:      []int{0},
		moneyFrom: 3,
		moneyTo:   4,
	}

	for _, m := range months {
		month := m.Date.Format("Jan 2006")
		for _, acc := range m.Accounts {
			for _, tx := range acc.Transactions {
				t.values = append(t.values, []any{
					month, acc.AccountGroup.Account, tx.Name,
					optionalMoney(tx.ComputedValue), tx.IsVerified, tx.IsTransfer,
				})
			}
			for _, card := range acc.CreditCards {
				t.values = append(t.values, []any{
					month, acc.AccountGroup.Account, card.Name,
					optionalMoney(card.Value), card.IsVerified, false,
				})
			}
		}
	}

	return t
}
