package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// SnapshotStore хранит снапшот каждой коллекции строкой в record_snapshots.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore создаёт SnapshotStore поверх открытого Store. Схема
// создаётся миграцией 0001_record_snapshots.
func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{db: store.DB()}
}

// Load возвращает снапшот или nil, если коллекция ещё не сохранялась.
func (s *SnapshotStore) Load(ctx context.Context, collection string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM record_snapshots
		WHERE collection = $1
	`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", collection, err)
	}
	return payload, nil
}

// Save перезаписывает снапшот коллекции одним upsert.
func (s *SnapshotStore) Save(ctx context.Context, collection string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO record_snapshots (collection, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (collection) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, collection, string(payload)); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", collection, err)
	}
	return nil
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)
