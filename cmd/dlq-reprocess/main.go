// Package main — утилита повторной публикации событий изменений из DLQ.
// По умолчанию работает в режиме dry-run и только перечисляет кандидатов.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/messaging/kafka"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	kinds       map[domain.RecordKind]bool
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// wants сообщает, попадает ли вид записи под фильтр -kind; пустой фильтр пропускает всё.
func (c config) wants(kind domain.RecordKind) bool {
	return len(c.kinds) == 0 || c.kinds[kind]
}

func parseConfig(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	var (
		cfg        config
		brokersRaw string
		kindsRaw   string
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&brokersRaw, "brokers", "", "comma-separated Kafka brokers (default $KAFKA_BROKERS)")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "dead letter topic to scan")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicRecordEvents, "topic that receives replayed events")
	fs.StringVar(&kindsRaw, "kind", "", "replay only these record kinds, comma-separated (order,container,good)")
	fs.IntVar(&cfg.limit, "limit", 100, "upper bound of scanned messages across partitions")
	fs.BoolVar(&cfg.execute, "execute", false, "publish events; without it the run is a dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "start each partition at its newest messages")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 2*time.Second, "stop reading a partition after this much silence")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}
	cfg.brokers = splitList(brokersRaw)

	kinds, err := parseKinds(kindsRaw)
	if err != nil {
		return config{}, err
	}
	cfg.kinds = kinds

	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch {
	case len(c.brokers) == 0:
		return fmt.Errorf("kafka brokers are required: use -brokers or KAFKA_BROKERS")
	case strings.TrimSpace(c.sourceTopic) == "":
		return fmt.Errorf("source-topic is required")
	case strings.TrimSpace(c.targetTopic) == "":
		return fmt.Errorf("target-topic is required")
	case c.sourceTopic == c.targetTopic:
		return fmt.Errorf("source-topic and target-topic must differ")
	case c.limit <= 0:
		return fmt.Errorf("limit must be > 0")
	case c.idleTimeout <= 0:
		return fmt.Errorf("idle-timeout must be > 0")
	}
	return nil
}

func parseKinds(raw string) (map[domain.RecordKind]bool, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return nil, nil
	}
	kinds := make(map[domain.RecordKind]bool, len(names))
	for _, name := range names {
		kind := domain.RecordKind(strings.ToLower(name))
		switch kind {
		case domain.KindOrder, domain.KindContainer, domain.KindGood:
			kinds[kind] = true
		default:
			return nil, fmt.Errorf("unknown record kind %q", name)
		}
	}
	return kinds, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// source — чтение DLQ по партициям.
type source interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, at int64) (int64, error)
	ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error)
	Close() error
}

type partitionStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

// publisher реализуется *kafka.Producer.
type publisher interface {
	PublishChange(topic string, event domain.ChangeEvent) error
	Close() error
}

type saramaSource struct {
	client   sarama.Client
	consumer sarama.Consumer
}

func (s saramaSource) Partitions(topic string) ([]int32, error) {
	return s.client.Partitions(topic)
}

func (s saramaSource) GetOffset(topic string, partition int32, at int64) (int64, error) {
	return s.client.GetOffset(topic, partition, at)
}

func (s saramaSource) ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (s saramaSource) Close() error {
	consumerErr := s.consumer.Close()
	if err := s.client.Close(); err != nil {
		return err
	}
	return consumerErr
}

// connect открывает источник DLQ и, в режиме execute, producer для повторной публикации.
var connect = func(cfg config) (source, publisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, saramaCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to kafka: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create dlq consumer: %w", err)
	}
	src := saramaSource{client: client, consumer: consumer}

	if !cfg.execute {
		return src, nil, nil
	}
	producer, err := kafka.NewProducer(cfg.brokers)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return src, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		stop()
		log.WithError(err).Fatal("invalid configuration")
	}
	if _, err := run(ctx, cfg); err != nil {
		stop()
		log.WithError(err).Fatal("dlq replay failed")
	}
}

func run(ctx context.Context, cfg config) (tally, error) {
	src, pub, err := connect(cfg)
	if err != nil {
		return tally{}, err
	}
	defer func() {
		if pub != nil {
			_ = pub.Close()
		}
		_ = src.Close()
	}()

	r := &replayer{cfg: cfg, src: src, pub: pub, logger: log.WithField("component", "dlq-reprocess")}
	return r.run(ctx)
}
