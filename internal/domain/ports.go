package domain

import (
	"context"
	"time"
)

// RecordRepository — CRUD и выборка по одной коллекции записей.
type RecordRepository[T Record] interface {
	// Get возвращает запись по ключу или ErrNotFound.
	Get(ctx context.Context, key string) (T, error)
	// List применяет фильтр, сортировку и пагинацию.
	List(ctx context.Context, q Query) (ListResult[T], error)
	// Create добавляет запись; ErrConflict, если ключ занят.
	Create(ctx context.Context, rec T) (T, error)
	// Update накладывает частичное обновление на существующую запись.
	Update(ctx context.Context, key string, patch Patch) (T, error)
	// Replace полностью заменяет существующую запись.
	Replace(ctx context.Context, key string, rec T) (T, error)
	// Delete удаляет запись; повторное удаление даёт ErrNotFound.
	Delete(ctx context.Context, key string) (DeleteResult, error)
}

// SnapshotStore хранит полный снапшот коллекции (JSON-массив) целиком.
type SnapshotStore interface {
	// Load возвращает сохранённый снапшот или nil, если его ещё нет.
	Load(ctx context.Context, collection string) ([]byte, error)
	// Save атомарно перезаписывает снапшот коллекции.
	Save(ctx context.Context, collection string, payload []byte) error
}

// OutboxPublisher публикует события из outbox во внешний брокер.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, msg OutboxMessage) error
}

// OutboxRepository хранит события изменений до публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage — событие, ожидающее публикации.
type OutboxMessage struct {
	ID         string
	RecordKind RecordKind
	RecordKey  string
	EventType  ChangeType
	Payload    []byte
	EnqueuedAt time.Time
}

// OutboxStats описывает backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
