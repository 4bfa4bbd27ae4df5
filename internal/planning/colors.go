package planning

import (
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Colour scale endpoints.
var (
	tintColor    = colorful.Color{R: 0.96, G: 0.96, B: 0.96}
	incomeColor  = colorful.Color{R: 0.18, G: 0.49, B: 0.2}
	expenseColor = colorful.Color{R: 0.78, G: 0.16, B: 0.16}
)

type colorGroup struct {
	name    string
	account int
}

// ApplyColorScale returns a copy of table with Color set on every transaction
// that has a value. Transactions sharing an account and name are shaded
// relative to the largest magnitude in that group; income blends towards green
// and expenses towards red.
func ApplyColorScale(table []model.PlanningData) []model.PlanningData {
	largest := make(map[colorGroup]int64)
	for _, month := range table {
		for a, account := range month.Accounts {
			for _, txn := range account.Transactions {
				if txn.ComputedValue == nil {
					continue
				}
				group := colorGroup{account: a, name: txn.Name}
				largest[group] = max(largest[group], abs(*txn.ComputedValue))
			}
		}
	}

	colored := slices.Clone(table)
	for i := range colored {
		colored[i].Accounts = slices.Clone(colored[i].Accounts)
		for a := range colored[i].Accounts {
			account := &colored[i].Accounts[a]
			account.Transactions = slices.Clone(account.Transactions)
			for t := range account.Transactions {
				txn := &account.Transactions[t]
				if txn.ComputedValue == nil {
					continue
				}
				value := *txn.ComputedValue
				peak := largest[colorGroup{account: a, name: txn.Name}]
				txn.Color = scaleColor(value, peak)
			}
		}
	}

	return colored
}

func scaleColor(value, peak int64) string {
	if value == 0 || peak == 0 {
		return ""
	}

	target := expenseColor
	if value > 0 {
		target = incomeColor
	}

	weight := float64(abs(value)) / float64(peak)
	return tintColor.BlendLab(target, weight).Clamped().Hex()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
