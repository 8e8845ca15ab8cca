package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/logistics/internal/health"
	"github.com/vladislavdragonenkov/logistics/internal/storage/file"
	"github.com/vladislavdragonenkov/logistics/internal/storage/memory"
	"github.com/vladislavdragonenkov/logistics/internal/storage/postgres"
	"github.com/vladislavdragonenkov/logistics/internal/storage/s3"
	"github.com/vladislavdragonenkov/logistics/internal/storage/sqlite"
)

type runtimeDependencies struct {
	driver         string
	snapshots      domain.SnapshotStore
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

func noopClose() error { return nil }

// initRuntimeDependencies открывает хранилище снапшотов и outbox выбранного драйвера.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}
	logger = logger.WithField("storage", driver)

	switch driver {
	case StorageDriverMemory:
		logger.Info("records are kept in memory only")
		return &runtimeDependencies{
			driver:     driver,
			outboxRepo: memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
			closeFn: noopClose,
		}, nil

	case StorageDriverFile:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return nil, errors.New("data dir is required for file storage")
		}
		store, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("init file storage: %w", err)
		}
		logger.WithField("dir", cfg.DataDir).Info("file snapshot storage initialized")
		return &runtimeDependencies{
			driver:     driver,
			snapshots:  store,
			outboxRepo: memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(ctx context.Context) error {
				_, err := store.Load(ctx, domain.KindOrder.Collection())
				return err
			}),
			closeFn: noopClose,
		}, nil

	case StorageDriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, errors.New("sqlite path is required for sqlite storage")
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("sqlite snapshot storage initialized")
		return &runtimeDependencies{
			driver:         driver,
			snapshots:      store,
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres dsn is required for postgres storage")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.WithField("target", store.Target()).Info("postgres snapshot storage initialized")
		return &runtimeDependencies{
			driver:         driver,
			snapshots:      postgres.NewSnapshotStore(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewSimpleChecker("storage", store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverS3:
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("s3 bucket is required for s3 storage")
		}
		store, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		logger.WithField("bucket", cfg.S3Bucket).Info("s3 snapshot storage initialized")
		return &runtimeDependencies{
			driver:         driver,
			snapshots:      store,
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", store.Ping),
			closeFn:        noopClose,
		}, nil
	}

	return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
}
