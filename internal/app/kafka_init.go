package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/logistics/internal/health"
	"github.com/vladislavdragonenkov/logistics/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/logistics/internal/service/outbox"
)

const (
	outboxStopTimeout = 5 * time.Second
	// maxOutboxLag — возраст самого старого неотправленного события, после
	// которого outbox считается деградировавшим.
	maxOutboxLag = 5 * time.Minute
)

// splitBrokers разбирает список брокеров через запятую, пропуская пустые элементы.
func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			brokers = append(brokers, part)
		}
	}
	return brokers
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without change events")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// kafkaChecker отражает результат подключения к брокеру; Kafka необязательна,
// поэтому ошибка понижает статус только до degraded.
func kafkaChecker(producer *kafka.Producer, initErr error) healthcheck.Checker {
	return healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
		if initErr != nil {
			return initErr
		}
		if producer == nil {
			return fmt.Errorf("kafka producer is not initialized")
		}
		return nil
	})
}

// outboxChecker сообщает о застрявших событиях изменений.
func outboxChecker(repo domain.OutboxRepository, now func() time.Time) healthcheck.Checker {
	return healthcheck.NewOptionalChecker("outbox", func(ctx context.Context) error {
		stats, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
			return nil
		}
		if lag := now().Sub(stats.OldestPendingAt); lag > maxOutboxLag {
			return fmt.Errorf("%d change events pending, oldest for %s", stats.PendingCount, lag.Truncate(time.Second))
		}
		return nil
	})
}

// startOutboxWorker запускает публикацию событий изменений в Kafka. Возвращает
// nil, если outbox или producer не настроены.
func startOutboxWorker(ctx context.Context, cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, logger *log.Entry) <-chan struct{} {
	if repo == nil || producer == nil {
		return nil
	}

	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	logger.WithField("topic", cfg.KafkaTopic).Info("outbox worker started")
	return done
}

// shutdownOutboxWorker останавливает воркер и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(outboxStopTimeout):
		logger.Warn("outbox worker did not stop in time")
	}
}
