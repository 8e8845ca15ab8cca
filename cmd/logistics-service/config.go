package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/logistics/internal/app"
)

const (
	envGRPCAddr            = "LOGISTICS_GRPC_ADDR"
	envHTTPAddr            = "LOGISTICS_HTTP_ADDR"
	envMetricsAddr         = "LOGISTICS_METRICS_ADDR"
	envPublicBaseURL       = "LOGISTICS_PUBLIC_BASE_URL"
	envStorageDriver       = "LOGISTICS_STORAGE_DRIVER"
	envDataDir             = "LOGISTICS_DATA_DIR"
	envSQLitePath          = "LOGISTICS_SQLITE_PATH"
	envPostgresDSN         = "LOGISTICS_POSTGRES_DSN"
	envPostgresAutoMigrate = "LOGISTICS_POSTGRES_AUTO_MIGRATE"
	envS3Bucket            = "LOGISTICS_S3_BUCKET"
	envS3Region            = "LOGISTICS_S3_REGION"
	envS3Endpoint          = "LOGISTICS_S3_ENDPOINT"
	envS3Prefix            = "LOGISTICS_S3_PREFIX"
	envS3PathStyle         = "LOGISTICS_S3_PATH_STYLE"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaTopic          = "LOGISTICS_KAFKA_TOPIC"
	envOutboxPollInterval  = "LOGISTICS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "LOGISTICS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "LOGISTICS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "LOGISTICS_OUTBOX_RETRY_DELAY"
	envLogLevel            = "LOGISTICS_LOG_LEVEL"
	envLogFormat           = "LOGISTICS_LOG_FORMAT"
)

type envLookup func(key string) (string, bool)

// configWarning — некорректное значение переменной, вместо которого взят default.
type configWarning struct {
	Key   string
	Value string
	Err   error
}

func (w configWarning) String() string {
	return fmt.Sprintf("%s=%q ignored: %v", w.Key, w.Value, w.Err)
}

func readConfig() (app.Config, []configWarning) {
	return readConfigFromEnv(os.LookupEnv)
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения не останавливают запуск: остаётся default и добавляется warning.
func readConfigFromEnv(lookup envLookup) (app.Config, []configWarning) {
	cfg := app.DefaultConfig()
	var warnings []configWarning

	str := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, target *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, configWarning{Key: key, Value: v, Err: err})
			return
		}
		*target = parsed
	}
	positiveInt := func(key string, target *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, configWarning{Key: key, Value: v, Err: err})
			return
		}
		*target = parsed
	}
	duration := func(key string, target *time.Duration, valid func(time.Duration) bool, msg string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, valid, msg)
		if err != nil {
			warnings = append(warnings, configWarning{Key: key, Value: v, Err: err})
			return
		}
		*target = parsed
	}

	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	str(envPublicBaseURL, &cfg.PublicBaseURL)
	str(envStorageDriver, &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	str(envDataDir, &cfg.DataDir)
	str(envSQLitePath, &cfg.SQLitePath)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	str(envS3Bucket, &cfg.S3Bucket)
	str(envS3Region, &cfg.S3Region)
	str(envS3Endpoint, &cfg.S3Endpoint)
	str(envS3Prefix, &cfg.S3Prefix)
	boolean(envS3PathStyle, &cfg.S3PathStyle)
	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, func(d time.Duration) bool { return d > 0 }, "must be > 0")
	positiveInt(envOutboxBatchSize, &cfg.OutboxBatchSize)
	positiveInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value %q", raw)
}

func parseInt(raw string, valid func(int) bool, msg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("invalid value %d: %s", value, msg)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, msg string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("invalid duration %s: %s", value, msg)
	}
	return value, nil
}
