// Package postgres хранит снапшоты коллекций и outbox событий в PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// opTimeout ограничивает одиночный запрос репозиториев пакета.
const opTimeout = 5 * time.Second

var errNotInitialized = errors.New("postgres store is not initialized")

// poolConfig — параметры пула database/sql поверх pgx.
type poolConfig struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
	connectTimeout  time.Duration
}

func defaultPoolConfig() poolConfig {
	// Снапшот коллекции пишется одной транзакцией, поэтому большой пул не нужен.
	return poolConfig{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxLifetime: 30 * time.Minute,
		connMaxIdleTime: 5 * time.Minute,
		connectTimeout:  5 * time.Second,
	}
}

// Option настраивает пул подключений Store.
type Option func(*poolConfig)

// WithMaxConns задаёт предел открытых и простаивающих подключений.
// Неположительные значения оставляют значения по умолчанию.
func WithMaxConns(open, idle int) Option {
	return func(c *poolConfig) {
		if open > 0 {
			c.maxOpenConns = open
		}
		if idle > 0 {
			c.maxIdleConns = min(idle, c.maxOpenConns)
		}
	}
}

// WithConnectTimeout задаёт таймаут проверки подключения в Open и Ping.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *poolConfig) {
		if timeout > 0 {
			c.connectTimeout = timeout
		}
	}
}

// Store держит пул подключений к PostgreSQL.
type Store struct {
	db             *sql.DB
	target         string
	connectTimeout time.Duration
}

// Open разбирает DSN, открывает пул через pgx и проверяет доступность базы.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)

	store := &Store{
		db:             db,
		target:         fmt.Sprintf("%s:%d/%s", connConfig.Host, connConfig.Port, connConfig.Database),
		connectTimeout: cfg.connectTimeout,
	}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", store.target, err)
	}
	return store, nil
}

// DB возвращает пул для низкоуровневого доступа.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Target возвращает host:port/database без учётных данных, для логов.
func (s *Store) Target() string {
	if s == nil {
		return ""
	}
	return s.target
}

// Ping проверяет подключение (readiness).
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}

	timeout := s.connectTimeout
	if timeout <= 0 {
		timeout = defaultPoolConfig().connectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
