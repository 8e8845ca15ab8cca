package domain

// RecordKind различает три типа учётных записей.
type RecordKind string

const (
	KindOrder     RecordKind = "order"
	KindContainer RecordKind = "container"
	KindGood      RecordKind = "good"
)

// Collection возвращает имя коллекции (и снапшота) для типа записей.
func (k RecordKind) Collection() string {
	switch k {
	case KindOrder:
		return "orders"
	case KindContainer:
		return "containers"
	case KindGood:
		return "goods"
	default:
		return string(k) + "s"
	}
}

// KeyField возвращает JSON-имя уникального ключа типа записей.
func (k RecordKind) KeyField() string {
	switch k {
	case KindOrder:
		return "orderNumber"
	case KindContainer:
		return "containerNumber"
	case KindGood:
		return "goodNumber"
	default:
		return "key"
	}
}

// Record — общий контракт для Order, Container и Good.
type Record interface {
	// Kind возвращает тип записи; вызывается и на нулевом значении.
	Kind() RecordKind
	// Key возвращает уникальный ключ записи.
	Key() string
}

// ValidateKey проверяет формат ключа для указанного типа записей.
func ValidateKey(kind RecordKind, key string) error {
	switch kind {
	case KindOrder:
		if !ValidOrderNumber(key) {
			return NewValidationError("invalid order number format: %q", key)
		}
	case KindContainer:
		if !ValidContainerNumber(key) {
			return NewValidationError("invalid container number format: %q", key)
		}
	default:
		if key == "" {
			return NewValidationError("%s is required", kind.KeyField())
		}
	}
	return nil
}
