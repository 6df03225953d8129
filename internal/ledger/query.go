package ledger

import (
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// BuildQuery composes the optional filters into one conjunction. Each filter
// that is set contributes a single condition; the owner condition is always last.
// A nil filter selects every transaction the user owns.
func BuildQuery(userID string, filter *model.TransactionFilter) service.Query {
	var conds []service.Condition

	if filter != nil {
		if filter.Type != "" {
			conds = append(conds, service.Condition{Field: service.FieldType, Op: service.OpEqual, Value: filter.Type})
		}

		if filter.Category != "" {
			conds = append(conds, service.Condition{Field: service.FieldCategory, Op: service.OpEqual, Value: filter.Category})
		}

		// Bounds at or below zero mean "no bound".
		if filter.MinAmount > 0 || filter.MaxAmount > 0 {
			amount := service.Condition{Field: service.FieldAmount, Op: service.OpRange}
			if filter.MinAmount > 0 {
				amount.Lower = filter.MinAmount
			}
			if filter.MaxAmount > 0 {
				amount.Upper = filter.MaxAmount
			}
			conds = append(conds, amount)
		}

		if filter.StartDate != nil || filter.EndDate != nil {
			date := service.Condition{Field: service.FieldDate, Op: service.OpRange}
			if filter.StartDate != nil {
				date.Lower = filter.StartDate.Start()
			}
			if filter.EndDate != nil {
				date.Upper = filter.EndDate.End()
			}
			conds = append(conds, date)
		}

		if text := strings.TrimSpace(filter.SearchText); text != "" {
			conds = append(conds, service.Condition{Field: service.FieldDescription, Op: service.OpContains, Value: text})
		}
	}

	conds = append(conds, service.Condition{Field: service.FieldUserID, Op: service.OpEqual, Value: userID})
	return service.Query{Conditions: conds}
}

// categoryQuery selects the user's transactions of one type linked to name.
func categoryQuery(userID string, txnType model.TransactionType, name string) service.Query {
	return BuildQuery(userID, &model.TransactionFilter{Type: txnType, Category: name})
}
