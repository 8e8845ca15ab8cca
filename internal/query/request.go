package query

import (
	"math"
	"strings"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// FromDocument собирает domain.Query из уже декодированного запроса вида
// {"filter": [{"field", "operation", "value"}], "sort": {"field", "direction"},
// "page": {"limit", "offset"}}. Так приходят аргументы gRPC (Struct) и GraphQL.
// Значение условия приводится к строке через Stringify.
func FromDocument(doc map[string]any) (domain.Query, error) {
	var q domain.Query

	if raw, ok := doc["filter"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return domain.Query{}, domain.NewValidationError("filter must be a list of clauses")
		}
		q.Filter = make([]domain.FilterClause, 0, len(items))
		for i, item := range items {
			clause, ok := item.(map[string]any)
			if !ok {
				return domain.Query{}, domain.NewValidationError("filter[%d] must be an object", i)
			}
			q.Filter = append(q.Filter, domain.FilterClause{
				Field:     Stringify(clause["field"]),
				Operation: domain.Operation(strings.ToUpper(Stringify(clause["operation"]))),
				Value:     Stringify(clause["value"]),
			})
		}
	}

	if raw, ok := doc["sort"]; ok && raw != nil {
		spec, ok := raw.(map[string]any)
		if !ok {
			return domain.Query{}, domain.NewValidationError("sort must be an object")
		}
		direction, err := domain.ParseSortDirection(Stringify(spec["direction"]))
		if err != nil {
			return domain.Query{}, err
		}
		q.Sort = &domain.SortSpec{Field: Stringify(spec["field"]), Direction: direction}
	}

	if raw, ok := doc["page"]; ok && raw != nil {
		spec, ok := raw.(map[string]any)
		if !ok {
			return domain.Query{}, domain.NewValidationError("page must be an object")
		}
		limit, err := intField(spec, "limit")
		if err != nil {
			return domain.Query{}, err
		}
		offset, err := intField(spec, "offset")
		if err != nil {
			return domain.Query{}, err
		}
		q.Page = &domain.PageSpec{Limit: limit, Offset: offset}
	}

	return q, nil
}

func intField(spec map[string]any, name string) (int, error) {
	switch v := spec[name].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, domain.NewValidationError("page.%s must be an integer", name)
		}
		return int(v), nil
	default:
		return 0, domain.NewValidationError("page.%s must be an integer", name)
	}
}
