package app

import (
	"time"

	"github.com/vladislavdragonenkov/logistics/internal/messaging/kafka"
)

// Поддерживаемые драйверы хранилища снапшотов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverFile     = "file"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverS3       = "s3"
)

// Config описывает настройки запуска сервиса записей.
type Config struct {
	GRPCAddr      string
	HTTPAddr      string
	MetricsAddr   string
	PublicBaseURL string

	StorageDriver       string
	DataDir             string
	SQLitePath          string
	PostgresDSN         string
	PostgresAutoMigrate bool

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool

	// KafkaBrokers — список брокеров через запятую; пустое значение отключает публикацию событий.
	KafkaBrokers string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		DataDir:             "data",
		SQLitePath:          "data/logistics.db",
		PostgresAutoMigrate: true,
		S3Region:            "us-east-1",
		KafkaTopic:          kafka.TopicRecordEvents,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}
