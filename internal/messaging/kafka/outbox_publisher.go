package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// OutboxTopicPublisher публикует события изменений из outbox в заданный Kafka topic.
// Значение сообщения — JSON domain.ChangeEvent без дополнительной обёртки.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для outbox событий изменений.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicRecordEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := event.ID
	if event.RecordKey != "" {
		key = MessageKey(event.RecordKind, event.RecordKey)
	}

	return p.producer.Send(p.topic, key, event.Payload, map[string]string{
		HeaderEventType:  string(event.EventType),
		HeaderRecordKind: string(event.RecordKind),
		HeaderOutboxID:   event.ID,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
