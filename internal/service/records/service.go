// Package records связывает репозиторий коллекции с логированием, метриками
// и outbox событий изменений. Транспортные адаптеры работают только через него.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/metrics"
)

const (
	opGet     = "get"
	opList    = "list"
	opCreate  = "create"
	opUpdate  = "update"
	opReplace = "replace"
	opDelete  = "delete"
)

// Option настраивает Service.
type Option func(*options)

type options struct {
	outbox  domain.OutboxRepository
	metrics *metrics.RecordMetrics
	logger  *log.Entry
	now     func() time.Time
}

// WithOutbox включает запись событий изменений в outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(o *options) {
		o.outbox = outbox
	}
}

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.RecordMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// counter реализуют репозитории, которые знают размер коллекции без List.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// Service — прикладной слой над одной коллекцией записей.
// Мутации сериализуются mu вместе с записью в outbox, поэтому порядок
// событий в outbox совпадает с порядком фиксации в пределах процесса.
type Service[T domain.Record] struct {
	mu      sync.Mutex
	kind    domain.RecordKind
	repo    domain.RecordRepository[T]
	outbox  domain.OutboxRepository
	metrics *metrics.RecordMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService создаёт сервис поверх репозитория.
func NewService[T domain.Record](repo domain.RecordRepository[T], opts ...Option) *Service[T] {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	kind := zero.Kind()
	logger := o.logger
	if logger == nil {
		logger = log.New().WithField("component", "records")
	}

	return &Service[T]{
		kind:    kind,
		repo:    repo,
		outbox:  o.outbox,
		metrics: o.metrics,
		logger:  logger.WithField("kind", string(kind)),
		now:     o.now,
	}
}

// Kind возвращает вид записей сервиса.
func (s *Service[T]) Kind() domain.RecordKind {
	return s.kind
}

func (s *Service[T]) Get(ctx context.Context, key string) (T, error) {
	start := time.Now()
	rec, err := s.repo.Get(ctx, key)
	s.observe(opGet, key, err, start)
	return rec, err
}

func (s *Service[T]) List(ctx context.Context, q domain.Query) (domain.ListResult[T], error) {
	start := time.Now()
	res, err := s.repo.List(ctx, q)
	s.observe(opList, "", err, start)
	return res, err
}

func (s *Service[T]) Create(ctx context.Context, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	created, err := s.repo.Create(ctx, rec)
	s.observe(opCreate, rec.Key(), err, start)
	if err != nil {
		return created, err
	}
	s.afterMutation(ctx, domain.ChangeCreated, created.Key(), created)
	return created, nil
}

func (s *Service[T]) Update(ctx context.Context, key string, patch domain.Patch) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	updated, err := s.repo.Update(ctx, key, patch)
	s.observe(opUpdate, key, err, start)
	if err != nil {
		return updated, err
	}
	s.afterMutation(ctx, domain.ChangeUpdated, key, updated)
	return updated, nil
}

func (s *Service[T]) Replace(ctx context.Context, key string, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	replaced, err := s.repo.Replace(ctx, key, rec)
	s.observe(opReplace, key, err, start)
	if err != nil {
		return replaced, err
	}
	s.afterMutation(ctx, domain.ChangeUpdated, key, replaced)
	return replaced, nil
}

func (s *Service[T]) Delete(ctx context.Context, key string) (domain.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.repo.Delete(ctx, key)
	s.observe(opDelete, key, err, start)
	if err != nil {
		return res, err
	}
	s.afterMutation(ctx, domain.ChangeDeleted, key, nil)
	return res, nil
}

// RefreshMetrics выставляет gauge размера коллекции по текущему состоянию.
func (s *Service[T]) RefreshMetrics(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.count(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to count records")
		return
	}
	s.metrics.SetRecordCount(string(s.kind), count)
}

func (s *Service[T]) count(ctx context.Context) (int, error) {
	if c, ok := s.repo.(counter); ok {
		return c.Count(ctx)
	}
	res, err := s.repo.List(ctx, domain.Query{Page: &domain.PageSpec{Limit: 0}})
	if err != nil {
		return 0, err
	}
	return res.TotalCount, nil
}

func (s *Service[T]) observe(operation, key string, err error, start time.Time) {
	code := domain.CodeSuccess
	if err != nil {
		code = string(domain.CodeOf(err))
	}
	s.metrics.ObserveOperation(string(s.kind), operation, code, time.Since(start))

	if err == nil {
		return
	}
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"code":      code,
	})
	if key != "" {
		entry = entry.WithField("key", key)
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Code.Expected() {
		entry.Debug("record operation rejected")
		return
	}
	entry.Error("record operation failed")
}

// afterMutation вызывается только после успешной фиксации изменения: ошибка
// outbox не откатывает мутацию и только логируется.
func (s *Service[T]) afterMutation(ctx context.Context, changeType domain.ChangeType, key string, rec any) {
	s.RefreshMetrics(ctx)
	if s.outbox == nil {
		return
	}

	event := domain.ChangeEvent{
		ID:         uuid.NewString(),
		Type:       changeType,
		Kind:       s.kind,
		Key:        key,
		OccurredAt: s.now(),
	}
	if rec != nil {
		raw, err := json.Marshal(rec)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Error("failed to encode change event record")
			return
		}
		event.Record = raw
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("failed to encode change event")
		return
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		ID:         event.ID,
		RecordKind: s.kind,
		RecordKey:  key,
		EventType:  changeType,
		Payload:    payload,
		EnqueuedAt: event.OccurredAt,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"key":        key,
			"event_type": string(changeType),
		}).Error("failed to enqueue change event")
		return
	}
	s.metrics.RecordChangeEvent(string(s.kind), string(changeType))
}

var (
	_ domain.RecordRepository[domain.Order]     = (*Service[domain.Order])(nil)
	_ domain.RecordRepository[domain.Container] = (*Service[domain.Container])(nil)
	_ domain.RecordRepository[domain.Good]      = (*Service[domain.Good])(nil)
)
