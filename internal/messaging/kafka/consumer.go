package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

const (
	defaultConsumeRetryDelay = time.Second
	maxConsumeRetryDelay     = 30 * time.Second
)

// MessageHandler обрабатывает сообщение из Kafka
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// ChangeEventHandler оборачивает обработчик событий изменений в MessageHandler.
func ChangeEventHandler(fn func(ctx context.Context, event domain.ChangeEvent) error) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParseChangeEvent(message)
		if err != nil {
			return err
		}
		return fn(ctx, event)
	}
}

// ConsumerConfig задаёт параметры consumer group.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// FromBeginning читает topic с самого старого offset для новой группы.
	FromBeginning bool
	// RetryDelay — пауза после первой ошибки Consume, дальше она удваивается.
	RetryDelay time.Duration
}

// Consumer читает события изменений записей из Kafka
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	handler  MessageHandler
	logger   *log.Entry
	wg       sync.WaitGroup

	retryDelay time.Duration
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(cfg ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("kafka consumer handler is required")
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{TopicRecordEvents}
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.FromBeginning {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &Consumer{
		consumer: consumer,
		topics:   cfg.Topics,
		handler:  handler,
		logger:   log.WithField("component", "kafka-consumer"),

		retryDelay: cfg.RetryDelay,
	}, nil
}

// Start запускает consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		delay := c.baseRetryDelay()
		for {
			// Consume должен вызываться в цикле, так как при rebalance он завершается
			err := c.consumer.Consume(ctx, c.topics, c)
			switch {
			case ctx.Err() != nil, errors.Is(err, sarama.ErrClosedConsumerGroup):
				return
			case err == nil:
				delay = c.baseRetryDelay()
				continue
			}

			c.logger.WithError(err).WithField("retry_in", delay.String()).Error("error from consumer")
			if !sleepContext(ctx, delay) {
				return
			}
			delay = min(delay*2, maxConsumeRetryDelay)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

func (c *Consumer) baseRetryDelay() time.Duration {
	if c.retryDelay > 0 {
		return c.retryDelay
	}
	return defaultConsumeRetryDelay
}

// sleepContext ждёт d и возвращает false, если ctx отменили раньше.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stop останавливает consumer
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения из partition. Сообщение, которое не
// удалось обработать, не маркируется и будет прочитано группой повторно.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			fields := log.Fields{
				"topic":      message.Topic,
				"partition":  message.Partition,
				"offset":     message.Offset,
				"event_type": headerValue(message, HeaderEventType),
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handler(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(fields).Error("message processing failed")
				continue
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
