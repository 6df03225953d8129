package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

var transactionColumnsByField = map[service.Field]string{
	service.FieldUserID:      "user_id",
	service.FieldType:        "type",
	service.FieldCategory:    "category",
	service.FieldAmount:      "amount",
	service.FieldDate:        "date",
	service.FieldDescription: "description",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere translates a query into a SQL predicate over the transactions table.
// An empty query matches every row.
func buildWhere(query service.Query) (string, []any, error) {
	if len(query.Conditions) == 0 {
		return "1 = 1", nil, nil
	}

	clauses := make([]string, 0, len(query.Conditions))
	var args []any
	for _, cond := range query.Conditions {
		column, ok := transactionColumnsByField[cond.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", common.ErrInvalidArgument, cond.Field)
		}

		switch cond.Op {
		case service.OpEqual:
			value, err := sqlValue(cond.Field, cond.Value)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, column+" = ?")
			args = append(args, value)

		case service.OpRange:
			var parts []string
			if cond.Lower != nil {
				lower, err := sqlValue(cond.Field, cond.Lower)
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, column+" >= ?")
				args = append(args, lower)
			}
			if cond.Upper != nil {
				upper, err := sqlValue(cond.Field, cond.Upper)
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, column+" <= ?")
				args = append(args, upper)
			}
			if len(parts) == 0 {
				continue
			}
			clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")

		case service.OpContains:
			text, ok := cond.Value.(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: contains needs text, got %T", common.ErrInvalidArgument, cond.Value)
			}
			clauses = append(clauses, "casefold("+column+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(foldCase(text))+"%")

		default:
			return "", nil, fmt.Errorf("%w: unknown operator %d", common.ErrInvalidArgument, cond.Op)
		}
	}

	if len(clauses) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

func sqlValue(field service.Field, value any) (any, error) {
	switch v := value.(type) {
	case string:
		if field == service.FieldUserID {
			return parseID(v, "user")
		}
		return v, nil
	case model.TransactionType:
		return string(v), nil
	case time.Time:
		return dbTime(v), nil
	case float64, int, int64:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value %T for %s", common.ErrInvalidArgument, value, field)
	}
}
