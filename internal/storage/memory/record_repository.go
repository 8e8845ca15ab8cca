package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/query"
)

// entry хранит запись вместе с её JSON-документом для фильтра и сортировки.
type entry[T domain.Record] struct {
	rec T
	doc map[string]any
}

func entryDoc[T domain.Record](e entry[T]) any { return e.doc }

// Options задаёт зависимости репозитория.
type Options struct {
	Store  domain.SnapshotStore
	Engine query.Engine
	Logger *log.Entry
}

// Option настраивает RecordRepository.
type Option func(*Options)

// WithSnapshotStore подключает долговременное хранилище коллекции.
func WithSnapshotStore(store domain.SnapshotStore) Option {
	return func(opts *Options) {
		opts.Store = store
	}
}

// WithEngine задаёт правила приведения типов для фильтров.
func WithEngine(engine query.Engine) Option {
	return func(opts *Options) {
		opts.Engine = engine
	}
}

// WithLogger задаёт logger репозитория.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// RecordRepository — in-memory коллекция записей одного типа.
// Мутации выполняются под эксклюзивной блокировкой целиком (load-mutate-save):
// новая копия коллекции сначала сохраняется в SnapshotStore и только потом
// подменяет текущую, поэтому читатели видят состояние до или после мутации.
type RecordRepository[T domain.Record] struct {
	mu      sync.RWMutex
	kind    domain.RecordKind
	entries []entry[T]
	index   map[string]int
	store   domain.SnapshotStore
	engine  query.Engine
	logger  *log.Entry
}

// NewRecordRepository создаёт пустой репозиторий. Без SnapshotStore данные живут только в памяти.
func NewRecordRepository[T domain.Record](options ...Option) *RecordRepository[T] {
	opts := Options{Engine: query.NewEngine()}
	for _, option := range options {
		option(&opts)
	}

	var zero T
	kind := zero.Kind()
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "record-repository")
	}

	return &RecordRepository[T]{
		kind:    kind,
		entries: []entry[T]{},
		index:   map[string]int{},
		store:   opts.Store,
		engine:  opts.Engine,
		logger:  logger.WithField("collection", kind.Collection()),
	}
}

// Load читает снапшот коллекции из SnapshotStore и заменяет им содержимое репозитория.
func (r *RecordRepository[T]) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := r.store.Load(ctx, r.kind.Collection())
	if err != nil {
		return domain.NewStorageError("load "+r.kind.Collection(), err)
	}
	if len(payload) == 0 {
		r.logger.Debug("snapshot is empty, starting with empty collection")
		return nil
	}

	var records []T
	if err := json.Unmarshal(payload, &records); err != nil {
		return domain.NewStorageError("decode "+r.kind.Collection(), err)
	}

	entries := make([]entry[T], 0, len(records))
	for _, rec := range records {
		e, err := newEntry(rec)
		if err != nil {
			return domain.NewStorageError("decode "+r.kind.Collection(), err)
		}
		entries = append(entries, e)
	}
	index, err := buildIndex(entries)
	if err != nil {
		return domain.NewStorageError("decode "+r.kind.Collection(), err)
	}

	r.entries = entries
	r.index = index
	r.logger.WithField("records", len(entries)).Info("collection loaded")
	return nil
}

// Get возвращает запись по ключу.
func (r *RecordRepository[T]) Get(_ context.Context, key string) (T, error) {
	var zero T
	if err := domain.ValidateKey(r.kind, key); err != nil {
		return zero, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[key]
	if !ok {
		return zero, domain.NewNotFoundError(r.kind, key)
	}
	return r.entries[i].rec, nil
}

// List выполняет фильтр, сортировку и пагинацию над текущим состоянием коллекции.
func (r *RecordRepository[T]) List(_ context.Context, q domain.Query) (domain.ListResult[T], error) {
	r.mu.RLock()
	// Срез entries никогда не меняется на месте, поэтому его можно читать без блокировки.
	entries := r.entries
	r.mu.RUnlock()

	res, err := query.Apply(r.engine, entries, entryDoc[T], q)
	if err != nil {
		return domain.ListResult[T]{}, err
	}

	items := make([]T, 0, len(res.Items))
	for _, e := range res.Items {
		items = append(items, e.rec)
	}
	return domain.ListResult[T]{Items: items, TotalCount: res.TotalCount}, nil
}

// Count возвращает размер коллекции без разбора запроса.
func (r *RecordRepository[T]) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Create добавляет новую запись.
func (r *RecordRepository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := domain.ValidateRecord(rec); err != nil {
		return zero, err
	}
	e, err := newEntry(rec)
	if err != nil {
		return zero, domain.NewValidationError("invalid %s: %v", r.kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[rec.Key()]; exists {
		return zero, domain.NewConflictError(r.kind, rec.Key())
	}

	next := make([]entry[T], len(r.entries), len(r.entries)+1)
	copy(next, r.entries)
	next = append(next, e)
	if err := r.commit(ctx, next); err != nil {
		return zero, err
	}
	return rec, nil
}

// Update накладывает частичное обновление (поверхностный merge) на существующую запись.
func (r *RecordRepository[T]) Update(ctx context.Context, key string, patch domain.Patch) (T, error) {
	var zero T
	if err := domain.ValidateKey(r.kind, key); err != nil {
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[key]
	if !ok {
		return zero, domain.NewNotFoundError(r.kind, key)
	}
	merged, err := domain.MergePatch(r.entries[i].rec, patch)
	if err != nil {
		return zero, err
	}
	if err := r.replaceAt(ctx, i, merged); err != nil {
		return zero, err
	}
	return merged, nil
}

// Replace полностью заменяет существующую запись; ключ в теле должен совпадать с key.
func (r *RecordRepository[T]) Replace(ctx context.Context, key string, rec T) (T, error) {
	var zero T
	if err := domain.ValidateKey(r.kind, key); err != nil {
		return zero, err
	}
	if rec.Key() != key {
		return zero, domain.NewValidationError("%s in body (%q) does not match %q", r.kind.KeyField(), rec.Key(), key)
	}
	if err := domain.ValidateRecord(rec); err != nil {
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[key]
	if !ok {
		return zero, domain.NewNotFoundError(r.kind, key)
	}
	if err := r.replaceAt(ctx, i, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

// Delete удаляет запись по ключу.
func (r *RecordRepository[T]) Delete(ctx context.Context, key string) (domain.DeleteResult, error) {
	if err := domain.ValidateKey(r.kind, key); err != nil {
		return domain.DeleteResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[key]
	if !ok {
		return domain.DeleteResult{}, domain.NewNotFoundError(r.kind, key)
	}

	next := make([]entry[T], 0, len(r.entries)-1)
	next = append(next, r.entries[:i]...)
	next = append(next, r.entries[i+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.Deleted(r.kind, key), nil
}

// replaceAt вызывается под r.mu.Lock.
func (r *RecordRepository[T]) replaceAt(ctx context.Context, i int, rec T) error {
	e, err := newEntry(rec)
	if err != nil {
		return domain.NewValidationError("invalid %s: %v", r.kind, err)
	}
	next := make([]entry[T], len(r.entries))
	copy(next, r.entries)
	next[i] = e
	return r.commit(ctx, next)
}

// commit сохраняет next в SnapshotStore и подменяет им текущую коллекцию.
// Вызывается под r.mu.Lock; при ошибке сохранения состояние не меняется.
func (r *RecordRepository[T]) commit(ctx context.Context, next []entry[T]) error {
	index, err := buildIndex(next)
	if err != nil {
		return domain.NewStorageError("index "+r.kind.Collection(), err)
	}

	if r.store != nil {
		records := make([]T, 0, len(next))
		for _, e := range next {
			records = append(records, e.rec)
		}
		payload, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return domain.NewStorageError("encode "+r.kind.Collection(), err)
		}
		if err := r.store.Save(ctx, r.kind.Collection(), payload); err != nil {
			r.logger.WithError(err).Error("failed to save collection snapshot")
			return domain.NewStorageError("save "+r.kind.Collection(), err)
		}
	}

	r.entries = next
	r.index = index
	return nil
}

func newEntry[T domain.Record](rec T) (entry[T], error) {
	doc, err := domain.ToDocument(rec)
	if err != nil {
		return entry[T]{}, err
	}
	return entry[T]{rec: rec, doc: doc}, nil
}

func buildIndex[T domain.Record](entries []entry[T]) (map[string]int, error) {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		key := e.rec.Key()
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		index[key] = i
	}
	return index, nil
}

var (
	_ domain.RecordRepository[domain.Order]     = (*RecordRepository[domain.Order])(nil)
	_ domain.RecordRepository[domain.Container] = (*RecordRepository[domain.Container])(nil)
	_ domain.RecordRepository[domain.Good]      = (*RecordRepository[domain.Good])(nil)
)
