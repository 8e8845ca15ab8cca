// Package query реализует фильтрацию, сортировку и пагинацию записей
// по их JSON-документам.
package query

import "strings"

// Resolve читает вложенное значение по пути через точку ("route.originPort.name").
// Второй результат false, если любой сегмент пути отсутствует; присутствующий
// null возвращается как (nil, true).
func Resolve(doc any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
