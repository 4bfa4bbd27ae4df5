package planning

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// ResolveTransfers mirrors every transfer scheduled in month onto its
// destination account. The result is keyed by destination account index.
// Mirrored rows are verified only when month is not after today's month.
func ResolveTransfers(accounts []model.AccountGroup, month model.PlanningMonth, todayIndex int) map[int][]model.AccountTransaction {
	indexByID := make(map[int]int, len(accounts))
	for i, account := range accounts {
		if account.ID != nil {
			indexByID[*account.ID] = i
		}
	}

	isVerified := planningMonthIndex(month) <= todayIndex
	mirrored := make(map[int][]model.AccountTransaction)

	for _, source := range accounts {
		for _, value := range source.Values {
			if value.TransferToAccountID == nil || !scheduledIn(value, month) {
				continue
			}

			destination, ok := indexByID[*value.TransferToAccountID]
			if !ok {
				slog.Debug("dropping transfer to unknown account",
					"source", source.Account,
					"value_id", value.ID,
					"to_account_id", *value.TransferToAccountID)
				continue
			}

			var computed *int64
			if sourceValue := computeValue(value); sourceValue != nil {
				computed = ptr(-*sourceValue)
			}

			mirrored[destination] = append(mirrored[destination], model.AccountTransaction{
				ID:            fmt.Sprintf("%d-transfer-to", value.ID),
				Name:          source.Account + " transfer",
				ComputedValue: computed,
				IsComputed:    true,
				IsVerified:    isVerified,
				IsTransfer:    true,
			})
		}
	}

	return mirrored
}

func scheduledIn(value model.Value, month model.PlanningMonth) bool {
	return value.Year == month.Year && value.Month == month.Month
}

// computeValue resolves a manual value: a literal wins over a formula. A
// formula that fails to evaluate leaves the value undefined.
func computeValue(value model.Value) *int64 {
	if value.Value != nil {
		return ptr(*value.Value)
	}
	if value.Formula == nil {
		return nil
	}

	result, err := EvaluateFormula(*value.Formula)
	if err != nil {
		slog.Warn("ignoring value with invalid formula",
			"value_id", value.ID,
			"name", value.Name,
			"error", err)
		return nil
	}
	return ptr(result)
}
