package query

import (
	"strings"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// ValidateClauses проверяет условия до начала выборки: неизвестная операция
// прерывает весь запрос, даже если коллекция пуста.
func ValidateClauses(clauses []domain.FilterClause) error {
	for _, clause := range clauses {
		if !supported(clause.Operation) {
			return domain.NewUnsupportedOperationError(string(clause.Operation))
		}
		if strings.TrimSpace(clause.Field) == "" {
			return domain.NewValidationError("filter field is required")
		}
	}
	return nil
}

func supported(op domain.Operation) bool {
	for _, known := range domain.Operations {
		if op == known {
			return true
		}
	}
	return false
}

// Matches проверяет документ по всем условиям (логическое И). Первое
// несовпавшее условие завершает проверку; отсутствующее поле — несовпадение.
func (r Rules) Matches(doc any, clauses []domain.FilterClause) (bool, error) {
	for _, clause := range clauses {
		ok, err := r.match(doc, clause)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r Rules) match(doc any, clause domain.FilterClause) (bool, error) {
	raw, present := Resolve(doc, clause.Field)

	switch clause.Operation {
	case domain.OpContains, domain.OpNotContains, domain.OpStartsWith, domain.OpEndsWith:
		if !present {
			return false, nil
		}
		item := strings.ToLower(Stringify(raw))
		needle := strings.ToLower(clause.Value)
		switch clause.Operation {
		case domain.OpContains:
			return strings.Contains(item, needle), nil
		case domain.OpNotContains:
			return !strings.Contains(item, needle), nil
		case domain.OpStartsWith:
			return strings.HasPrefix(item, needle), nil
		default:
			return strings.HasSuffix(item, needle), nil
		}
	case domain.OpEqual, domain.OpNotEqual,
		domain.OpGreater, domain.OpGreaterOrEqual, domain.OpLess, domain.OpLessOrEqual:
		if !present {
			return false, nil
		}
		a := r.Coerce(clause.Field, raw)
		b := r.Coerce(clause.Field, clause.Value)
		return compareValues(clause.Operation, a, b), nil
	default:
		return false, domain.NewUnsupportedOperationError(string(clause.Operation))
	}
}

// compareValues применяет операцию к приведённым значениям. Если не разобралась
// только одна сторона, значения несравнимы (как NaN); если обе, сравниваются
// их строковые формы.
func compareValues(op domain.Operation, a, b Value) bool {
	var cmp int
	switch {
	case !a.Valid && !b.Valid:
		cmp = strings.Compare(a.Raw, b.Raw)
	case !a.Valid || !b.Valid:
		return op == domain.OpNotEqual
	case a.Kind == KindString:
		cmp = strings.Compare(a.Str, b.Str)
	default:
		switch {
		case a.Num < b.Num:
			cmp = -1
		case a.Num > b.Num:
			cmp = 1
		}
	}

	switch op {
	case domain.OpEqual:
		return cmp == 0
	case domain.OpNotEqual:
		return cmp != 0
	case domain.OpGreater:
		return cmp > 0
	case domain.OpGreaterOrEqual:
		return cmp >= 0
	case domain.OpLess:
		return cmp < 0
	default:
		return cmp <= 0
	}
}
