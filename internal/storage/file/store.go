// Package file хранит снапшоты коллекций в JSON-файлах <dir>/<collection>.json.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Store — файловое SnapshotStore. Запись атомарна: temp-файл, fsync, rename.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New создаёт каталог dir (если его нет) и возвращает Store.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("file store: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path возвращает путь к файлу коллекции.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// Load читает файл коллекции; отсутствующий файл — это пустой снапшот.
func (s *Store) Load(_ context.Context, collection string) ([]byte, error) {
	if !collectionName.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	data, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return data, nil
}

// Save атомарно перезаписывает файл коллекции.
func (s *Store) Save(ctx context.Context, collection string, payload []byte) error {
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(payload); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(collection)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ domain.SnapshotStore = (*Store)(nil)
