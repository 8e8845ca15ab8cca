package query

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// ValueKind — тип, к которому приводятся обе стороны сравнения.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Rules определяет приведение типов по имени поля: число, если путь содержит
// одну из NumericSubstrings; дата, если путь равен одному из DateFields или
// содержит одну из DateSubstrings; иначе строка.
type Rules struct {
	NumericSubstrings []string
	DateFields        []string
	DateSubstrings    []string
}

// DefaultRules — эвристика по подстрокам имени поля. Поле, случайно содержащее
// "value" в имени, тоже будет сравниваться как число.
var DefaultRules = Rules{
	NumericSubstrings: []string{"quantity", "value", "weight.gross", "weight.net", "palletCount", "dimensions"},
	DateFields:        []string{"createdAt"},
	DateSubstrings:    []string{"schedule.loadingDate", "schedule.departureDate", "schedule.estimatedArrivalDate"},
}

// KindOf возвращает тип сравнения для пути. Дата имеет приоритет над числом.
func (r Rules) KindOf(path string) ValueKind {
	for _, field := range r.DateFields {
		if path == field {
			return KindDate
		}
	}
	for _, sub := range r.DateSubstrings {
		if strings.Contains(path, sub) {
			return KindDate
		}
	}
	for _, sub := range r.NumericSubstrings {
		if strings.Contains(path, sub) {
			return KindNumber
		}
	}
	return KindString
}

// Value — приведённое значение. Для чисел и дат Valid=false означает,
// что разобрать значение не удалось: такое значение ничему не равно и не упорядочено.
type Value struct {
	Kind  ValueKind
	Str   string
	Num   float64
	Valid bool
	// Raw — строковая форма исходного значения, по ней сравниваются два неразобранных значения.
	Raw   string
}

// Coerce приводит сырое значение к типу, заданному правилами для path.
func (r Rules) Coerce(path string, raw any) Value {
	str := Stringify(raw)
	switch kind := r.KindOf(path); kind {
	case KindNumber:
		n, ok := parseNumber(raw)
		return Value{Kind: kind, Num: n, Valid: ok, Raw: str}
	case KindDate:
		t, ok := parseDate(raw)
		if !ok {
			return Value{Kind: kind, Raw: str}
		}
		return Value{Kind: kind, Num: float64(t.UnixMilli()), Valid: true, Raw: str}
	default:
		return Value{Kind: KindString, Str: str, Valid: true, Raw: str}
	}
}

// Stringify даёт строковое представление JSON-значения: числа без экспоненты
// и лишних нулей, null как пустая строка, объекты и массивы как JSON.
func Stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func parseNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseDate(raw any) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	return domain.ParseDate(s)
}
