package query

// Paginate возвращает окно [offset, offset+limit). Выход за границы не ошибка:
// offset >= len или limit <= 0 дают пустой срез, отрицательный offset считается нулём.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}
