package httpapi

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// parseQuery разбирает параметры выборки:
//
//	filter=field:OPERATION:value (повторяется, условия объединяются по И)
//	sort=field[:ASC|DESC]
//	limit=N, offset=N
//
// Значение фильтра может содержать двоеточия: делятся только первые два.
func parseQuery(values url.Values) (domain.Query, error) {
	var q domain.Query

	for _, raw := range values["filter"] {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 {
			return domain.Query{}, domain.NewValidationError("filter must look like field:OPERATION:value, got %q", raw)
		}
		q.Filter = append(q.Filter, domain.FilterClause{
			Field:     parts[0],
			Operation: domain.Operation(strings.ToUpper(parts[1])),
			Value:     parts[2],
		})
	}

	if raw := values.Get("sort"); raw != "" {
		field, dir, _ := strings.Cut(raw, ":")
		direction, err := domain.ParseSortDirection(dir)
		if err != nil {
			return domain.Query{}, err
		}
		q.Sort = &domain.SortSpec{Field: field, Direction: direction}
	}

	limit, hasLimit, err := intParam(values, "limit")
	if err != nil {
		return domain.Query{}, err
	}
	offset, hasOffset, err := intParam(values, "offset")
	if err != nil {
		return domain.Query{}, err
	}
	if hasLimit || hasOffset {
		if !hasLimit {
			limit = math.MaxInt32
		}
		q.Page = &domain.PageSpec{Limit: limit, Offset: offset}
	}

	return q, nil
}

func intParam(values url.Values, name string) (int, bool, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false, domain.NewValidationError("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, true, nil
}
