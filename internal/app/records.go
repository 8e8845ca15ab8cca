package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/metrics"
	graphqlapi "github.com/vladislavdragonenkov/logistics/internal/service/graphql"
	httpapi "github.com/vladislavdragonenkov/logistics/internal/service/http"
	"github.com/vladislavdragonenkov/logistics/internal/service/records"
	"github.com/vladislavdragonenkov/logistics/internal/storage/memory"
)

// recordServices — прикладные сервисы всех коллекций.
type recordServices struct {
	orders     *records.Service[domain.Order]
	containers *records.Service[domain.Container]
	goods      *records.Service[domain.Good]
}

func initRecordServices(
	ctx context.Context,
	snapshots domain.SnapshotStore,
	outboxRepo domain.OutboxRepository,
	recordMetrics *metrics.RecordMetrics,
	logger *log.Entry,
) (*recordServices, error) {
	orders, err := newRecordService[domain.Order](ctx, snapshots, outboxRepo, recordMetrics, logger)
	if err != nil {
		return nil, err
	}
	containers, err := newRecordService[domain.Container](ctx, snapshots, outboxRepo, recordMetrics, logger)
	if err != nil {
		return nil, err
	}
	goods, err := newRecordService[domain.Good](ctx, snapshots, outboxRepo, recordMetrics, logger)
	if err != nil {
		return nil, err
	}
	return &recordServices{orders: orders, containers: containers, goods: goods}, nil
}

// newRecordService загружает коллекцию из снапшота и оборачивает её сервисом.
func newRecordService[T domain.Record](
	ctx context.Context,
	snapshots domain.SnapshotStore,
	outboxRepo domain.OutboxRepository,
	recordMetrics *metrics.RecordMetrics,
	logger *log.Entry,
) (*records.Service[T], error) {
	var zero T
	kind := zero.Kind()

	repo := memory.NewRecordRepository[T](
		memory.WithSnapshotStore(snapshots),
		memory.WithLogger(logger.WithField("collection", kind.Collection())),
	)
	if err := repo.Load(ctx); err != nil {
		return nil, fmt.Errorf("load %s: %w", kind.Collection(), err)
	}

	opts := []records.Option{
		records.WithMetrics(recordMetrics),
		records.WithLogger(logger.WithField("layer", "records")),
	}
	if outboxRepo != nil {
		opts = append(opts, records.WithOutbox(outboxRepo))
	}
	svc := records.NewService[T](repo, opts...)
	svc.RefreshMetrics(ctx)
	return svc, nil
}

func (s *recordServices) httpRepositories() httpapi.Repositories {
	return httpapi.Repositories{Orders: s.orders, Containers: s.containers, Goods: s.goods}
}

func (s *recordServices) graphqlRepositories() graphqlapi.Repositories {
	return graphqlapi.Repositories{Orders: s.orders, Containers: s.containers, Goods: s.goods}
}
