package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 30 * time.Second
)

// Результаты попыток публикации в метрике logistics_outbox_publish_attempts_total.
const (
	resultSent      = "sent"
	resultRetry     = "retry_error"
	resultFailed    = "failed"
	resultDLQFailed = "dlq_failed"
)

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logistics_outbox_publish_attempts_total",
		Help: "Total number of change event publish attempts grouped by result.",
	}, []string{"result"})
	pendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logistics_outbox_pending_records",
		Help: "Current number of change events waiting in the outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logistics_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending change event.",
	})
	prunedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logistics_outbox_pruned_records_total",
		Help: "Total number of sent change events removed from the in-memory outbox.",
	})
)

// pruner реализуют outbox-хранилища, которым нужно явно удалять отправленные события.
type pruner interface {
	Prune() int
}

// deadLetter — тело сообщения в DLQ. Payload хранит исходный domain.ChangeEvent,
// поэтому событие можно переиграть без обращения к outbox.
type deadLetter struct {
	OutboxID       string            `json:"outbox_id"`
	RecordKind     domain.RecordKind `json:"record_kind"`
	RecordKey      string            `json:"record_key"`
	EventType      domain.ChangeType `json:"event_type"`
	Payload        json.RawMessage   `json:"payload"`
	PublishError   string            `json:"publish_error"`
	DLQPublishedAt string            `json:"dlq_published_at"`
}

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithDLQPublisher задаёт publisher для событий, исчерпавших попытки.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) { w.dlq = publisher }
}

// WithPollInterval задаёт частоту опроса outbox; значения <= 0 игнорируются.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithBatchSize задаёт число событий, забираемых за один цикл.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithMaxAttempts задаёт число попыток публикации до пометки failed.
func WithMaxAttempts(attempts int) Option {
	return func(w *Worker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay задаёт задержку перед второй попыткой; дальше она удваивается.
// Ноль отключает ожидание между попытками.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) { w.retryBaseDelay = max(delay, 0) }
}

// Worker переносит события изменений записей из outbox в брокер.
type Worker struct {
	repo           domain.OutboxRepository
	publisher      domain.OutboxPublisher
	dlq            domain.OutboxPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(w)
	}
	if w.logger == nil {
		w.logger = log.WithField("component", "outbox-worker")
	}
	return w
}

// Run опрашивает outbox каждые pollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает один батч pending-событий и публикует их по порядку.
// Отправленные события помечаются sent, исчерпавшие попытки уходят в DLQ и
// помечаются failed.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.observeBacklog(ctx)
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		w.deliver(ctx, msg)
	}

	if p, ok := w.repo.(pruner); ok && len(batch) > 0 {
		if n := p.Prune(); n > 0 {
			prunedEvents.Add(float64(n))
		}
	}
}

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id":   msg.ID,
		"record_kind": msg.RecordKind,
		"record_key":  msg.RecordKey,
		"event_type":  msg.EventType,
	})

	err := w.publish(ctx, msg)
	if err == nil {
		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("failed to mark outbox message as sent")
		}
		return
	}

	entry.WithError(err).Error("outbox publish failed after retries")
	publishAttempts.WithLabelValues(resultFailed).Inc()

	if dlqErr := w.sendToDLQ(ctx, msg, err); dlqErr != nil {
		entry.WithError(dlqErr).Warn("failed to publish to DLQ")
		publishAttempts.WithLabelValues(resultDLQFailed).Inc()
	}
	if err := w.repo.MarkFailed(ctx, msg.ID); err != nil {
		entry.WithError(err).Warn("failed to mark outbox message as failed")
	}
}

// publish делает до maxAttempts попыток с экспоненциальной задержкой между ними.
func (w *Worker) publish(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.publisher.Publish(ctx, msg); err == nil {
			publishAttempts.WithLabelValues(resultSent).Inc()
			return nil
		}
		publishAttempts.WithLabelValues(resultRetry).Inc()
		if attempt == w.maxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", attempt, err)
		}

		if delay := w.retryBackoff(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// retryBackoff возвращает паузу после attempt-й неудачной попытки:
// base, 2*base, 4*base... не больше maxRetryDelay.
func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 || attempt < 1 {
		return 0
	}
	delay := w.retryBaseDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	pendingEvents.Set(float64(stats.PendingCount))
	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = max(time.Since(stats.OldestPendingAt).Seconds(), 0)
	}
	oldestPendingAge.Set(age)
}

func (w *Worker) sendToDLQ(ctx context.Context, msg domain.OutboxMessage, cause error) error {
	if w.dlq == nil {
		return nil
	}

	body, err := json.Marshal(deadLetter{
		OutboxID:       msg.ID,
		RecordKind:     msg.RecordKind,
		RecordKey:      msg.RecordKey,
		EventType:      msg.EventType,
		Payload:        json.RawMessage(msg.Payload),
		PublishError:   cause.Error(),
		DLQPublishedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	dead := msg
	dead.Payload = body
	if err := w.dlq.Publish(ctx, dead); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
