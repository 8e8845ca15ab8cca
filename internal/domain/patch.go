package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch — частичное обновление записи: ключи верхнего уровня в JSON-именах.
// Вложенный объект в Patch заменяет соответствующий объект записи целиком.
type Patch map[string]any

// ToDocument переводит запись в JSON-документ, по которому работают фильтр и сортировка.
func ToDocument(rec any) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal record document: %w", err)
	}
	return doc, nil
}

// DecodeRecord строго разбирает JSON записи: неизвестные поля и неверные типы дают VALIDATION_ERROR.
func DecodeRecord[T Record](raw []byte) (T, error) {
	var rec T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		var zero T
		return zero, NewValidationError("invalid %s payload: %v", zero.Kind(), err)
	}
	return rec, nil
}

// DecodeDocument разбирает запись из уже декодированного JSON-объекта.
func DecodeDocument[T Record](doc map[string]any) (T, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		var zero T
		return zero, NewValidationError("invalid %s payload: %v", zero.Kind(), err)
	}
	return DecodeRecord[T](raw)
}

// MergePatch накладывает patch на current поверхностно (по полям верхнего уровня)
// и проверяет результат. Смена ключа запрещена.
func MergePatch[T Record](current T, patch Patch) (T, error) {
	var zero T
	doc, err := ToDocument(current)
	if err != nil {
		return zero, err
	}
	for field, value := range patch {
		doc[field] = value
	}
	merged, err := DecodeDocument[T](doc)
	if err != nil {
		return zero, err
	}
	if merged.Key() != current.Key() {
		return zero, NewValidationError("%s cannot be changed", current.Kind().KeyField())
	}
	if err := ValidateRecord(merged); err != nil {
		return zero, err
	}
	return merged, nil
}
