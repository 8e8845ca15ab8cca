// Package sqlite хранит снапшоты коллекций в таблице SQLite (modernc, без cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS record_snapshots (
	collection TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store — SnapshotStore поверх одного файла SQLite: одна строка на коллекцию.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) базу по пути path и готовит схему.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "logistics.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite не любит параллельных писателей на одном файле.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create record_snapshots table: %w", err)
	}
	return &Store{db: db}, nil
}

// Load возвращает снапшот коллекции или nil, если строки ещё нет.
func (s *Store) Load(ctx context.Context, collection string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM record_snapshots WHERE collection = ?`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", collection, err)
	}
	return payload, nil
}

// Save вставляет или перезаписывает снапшот коллекции.
func (s *Store) Save(ctx context.Context, collection string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO record_snapshots(collection, payload, updated_at)
		VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", collection, err)
	}
	return nil
}

// Ping проверяет доступность базы (используется в readiness).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ domain.SnapshotStore = (*Store)(nil)
