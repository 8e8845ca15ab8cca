package domain

import "strings"

// Operation — операция сравнения в условии фильтра.
type Operation string

const (
	OpEqual          Operation = "EQUAL"
	OpNotEqual       Operation = "NOT_EQUAL"
	OpContains       Operation = "CONTAINS"
	OpNotContains    Operation = "NOT_CONTAINS"
	OpGreater        Operation = "GREATER"
	OpGreaterOrEqual Operation = "GREATER_OR_EQUAL"
	OpLess           Operation = "LESS"
	OpLessOrEqual    Operation = "LESS_OR_EQUAL"
	OpStartsWith     Operation = "STARTS_WITH"
	OpEndsWith       Operation = "ENDS_WITH"
)

// Operations перечисляет все поддерживаемые операции в порядке объявления.
var Operations = []Operation{
	OpEqual, OpNotEqual, OpContains, OpNotContains,
	OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual,
	OpStartsWith, OpEndsWith,
}

// FilterClause — одно условие фильтра: поле (путь через точку), операция, значение.
type FilterClause struct {
	Field     string    `json:"field"`
	Operation Operation `json:"operation"`
	Value     string    `json:"value"`
}

// SortDirection задаёт направление сортировки.
type SortDirection string

const (
	SortAscending  SortDirection = "ASCENDING"
	SortDescending SortDirection = "DESCENDING"
)

// ParseSortDirection принимает ASC/ASCENDING/DESC/DESCENDING без учёта регистра.
// Пустая строка означает ASCENDING.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC", "ASCENDING":
		return SortAscending, nil
	case "DESC", "DESCENDING":
		return SortDescending, nil
	default:
		return "", NewValidationError("invalid sort direction: %q", s)
	}
}

// SortSpec — сортировка по одному полю.
type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// PageSpec — окно выдачи.
type PageSpec struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query объединяет фильтр, сортировку и пагинацию. Нулевые части не применяются.
type Query struct {
	Filter []FilterClause `json:"filter,omitempty"`
	Sort   *SortSpec      `json:"sort,omitempty"`
	Page   *PageSpec      `json:"page,omitempty"`
}

// ListResult — результат выборки. TotalCount считается после фильтра, до пагинации.
type ListResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}
