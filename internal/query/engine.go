package query

import (
	"strings"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// Engine выполняет domain.Query над коллекцией по заданным правилам приведения.
type Engine struct {
	Rules Rules
}

// NewEngine создаёт движок с DefaultRules.
func NewEngine() Engine { return Engine{Rules: DefaultRules} }

// Validate проверяет запрос целиком до выполнения.
func (e Engine) Validate(q domain.Query) error {
	if err := ValidateClauses(q.Filter); err != nil {
		return err
	}
	if q.Sort != nil {
		if strings.TrimSpace(q.Sort.Field) == "" {
			return domain.NewValidationError("sort field is required")
		}
		switch q.Sort.Direction {
		case "", domain.SortAscending, domain.SortDescending:
		default:
			return domain.NewValidationError("invalid sort direction: %q", q.Sort.Direction)
		}
	}
	return nil
}

// Apply фильтрует, сортирует и режет items. Исходный срез не изменяется.
// TotalCount — число элементов после фильтра, до пагинации.
func Apply[T any](e Engine, items []T, docOf func(T) any, q domain.Query) (domain.ListResult[T], error) {
	if err := e.Validate(q); err != nil {
		return domain.ListResult[T]{}, err
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := e.Rules.Matches(docOf(item), q.Filter)
		if err != nil {
			return domain.ListResult[T]{}, err
		}
		if ok {
			matched = append(matched, item)
		}
	}

	if q.Sort != nil {
		SortDocs(matched, docOf, *q.Sort)
	}

	total := len(matched)
	if q.Page != nil {
		matched = Paginate(matched, q.Page.Offset, q.Page.Limit)
	}
	return domain.ListResult[T]{Items: matched, TotalCount: total}, nil
}
