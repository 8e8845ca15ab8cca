package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// Topics для Kafka
const (
	TopicRecordEvents    = "logistics.records.events"
	TopicDeadLetterQueue = "logistics.records.dlq" // события, не опубликованные после всех retry
)

// Kafka headers событий изменений
const (
	HeaderEventType  = "x-event-type"
	HeaderRecordKind = "x-record-kind"
	HeaderOutboxID   = "x-outbox-id"
)

// MessageKey возвращает ключ партиционирования: все события одной записи
// попадают в одну партицию и читаются по порядку.
func MessageKey(kind domain.RecordKind, key string) string {
	return string(kind) + ":" + key
}

// ParseChangeEvent парсит ChangeEvent из сообщения
func ParseChangeEvent(message *sarama.ConsumerMessage) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	if event.Type == "" || event.Kind == "" {
		return domain.ChangeEvent{}, fmt.Errorf("change event at offset %d has no type or kind", message.Offset)
	}
	return event, nil
}

func headerValue(message *sarama.ConsumerMessage, name string) string {
	for _, header := range message.Headers {
		if header != nil && string(header.Key) == name {
			return string(header.Value)
		}
	}
	return ""
}
