package query

import (
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// rank задаёт порядок между типами: отсутствие/null < bool < число < строка < прочее.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, float32, int, int64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// Compare упорядочивает два сырых значения без приведения типов:
// числа численно, строки лексикографически, разные типы по rank.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		return 0
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		af, _ := parseNumber(a)
		bf, _ := parseNumber(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case 3:
		return strings.Compare(a.(string), b.(string))
	default:
		return strings.Compare(Stringify(a), Stringify(b))
	}
}

// CompareDocs сравнивает два документа по полю spec.Field с учётом направления.
func CompareDocs(a, b any, spec domain.SortSpec) int {
	av, _ := Resolve(a, spec.Field)
	bv, _ := Resolve(b, spec.Field)
	cmp := Compare(av, bv)
	if spec.Direction == domain.SortDescending {
		return -cmp
	}
	return cmp
}

// SortDocs сортирует items по документам, которые возвращает docOf.
// Сортировка стабильная: равные по ключу элементы сохраняют исходный порядок.
func SortDocs[T any](items []T, docOf func(T) any, spec domain.SortSpec) {
	docs := make([]any, len(items))
	for i, item := range items {
		docs[i] = docOf(item)
	}
	sort.Stable(&docSorter[T]{items: items, docs: docs, spec: spec})
}

type docSorter[T any] struct {
	items []T
	docs  []any
	spec  domain.SortSpec
}

func (s *docSorter[T]) Len() int { return len(s.items) }

func (s *docSorter[T]) Less(i, j int) bool {
	return CompareDocs(s.docs[i], s.docs[j], s.spec) < 0
}

func (s *docSorter[T]) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.docs[i], s.docs[j] = s.docs[j], s.docs[i]
}
