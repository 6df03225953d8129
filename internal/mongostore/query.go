package mongostore

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// buildFilter translates a query into a single $and document. An empty query
// matches every document.
func buildFilter(query service.Query) (bson.D, error) {
	clauses := bson.A{}
	for _, cond := range query.Conditions {
		field := string(cond.Field)

		switch cond.Op {
		case service.OpEqual:
			value, err := bsonValue(cond.Field, cond.Value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, bson.D{{Key: field, Value: value}})

		case service.OpRange:
			bounds := bson.D{}
			if cond.Lower != nil {
				lower, err := bsonValue(cond.Field, cond.Lower)
				if err != nil {
					return nil, err
				}
				bounds = append(bounds, bson.E{Key: "$gte", Value: lower})
			}
			if cond.Upper != nil {
				upper, err := bsonValue(cond.Field, cond.Upper)
				if err != nil {
					return nil, err
				}
				bounds = append(bounds, bson.E{Key: "$lte", Value: upper})
			}
			if len(bounds) == 0 {
				continue
			}
			clauses = append(clauses, bson.D{{Key: field, Value: bounds}})

		case service.OpContains:
			text, ok := cond.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: contains needs text, got %T", common.ErrInvalidArgument, cond.Value)
			}
			clauses = append(clauses, bson.D{{Key: field, Value: bson.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}}})

		default:
			return nil, fmt.Errorf("%w: unknown operator %d", common.ErrInvalidArgument, cond.Op)
		}
	}

	if len(clauses) == 0 {
		return bson.D{}, nil
	}
	return bson.D{{Key: "$and", Value: clauses}}, nil
}

func bsonValue(field service.Field, value any) (any, error) {
	switch v := value.(type) {
	case string:
		if field == service.FieldUserID {
			return parseID(v, "user")
		}
		return v, nil
	case model.TransactionType:
		return string(v), nil
	case time.Time:
		return v.UTC(), nil
	case float64, int, int64:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value %T for %s", common.ErrInvalidArgument, value, field)
	}
}

func categoryFilter(owner bson.ObjectID, filter service.CategoryFilter) bson.D {
	doc := bson.D{{Key: "user_id", Value: owner}}
	if filter.Type != "" {
		doc = append(doc, bson.E{Key: "type", Value: string(filter.Type)})
	}
	if len(filter.ExcludeNames) > 0 {
		doc = append(doc, bson.E{Key: "name", Value: bson.D{{Key: "$nin", Value: filter.ExcludeNames}}})
	}
	return doc
}
