package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// goodsClient — часть grpcsvc.Client[domain.Good], которую использует нагрузка.
type goodsClient interface {
	Create(ctx context.Context, rec domain.Good) (domain.Good, error)
	List(ctx context.Context, q domain.Query) (domain.ListResult[domain.Good], error)
	Update(ctx context.Context, key string, patch domain.Patch) (domain.Good, error)
	Delete(ctx context.Context, key string) (domain.DeleteResult, error)
}

// Имена шагов в отчёте.
const (
	stepScenario = "scenario"
	stepCreate   = "CreateGood"
	stepList     = "ListGoods"
	stepUpdate   = "UpdateGood"
	stepDelete   = "DeleteGood"
)

type runner struct {
	cfg     settings
	clients []goodsClient
	runID   string
	stats   *recorder
}

func newRunner(cfg settings, clients []goodsClient) *runner {
	return &runner{
		cfg:     cfg,
		clients: clients,
		runID:   fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid()),
		stats:   newRecorder(),
	}
}

func (r *runner) run() report {
	started := time.Now()
	jobs := make(chan int, r.cfg.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.workers; w++ {
		wg.Add(1)
		go func(client goodsClient) {
			defer wg.Done()
			for index := range jobs {
				_ = r.runScenario(client, index)
			}
		}(r.clients[w%len(r.clients)])
	}

	feed(jobs, r.cfg)
	wg.Wait()

	return r.stats.report(started, time.Since(started))
}

// feed раздаёт номера сценариев до исчерпания счётчика или таймера и закрывает канал.
func feed(jobs chan<- int, cfg settings) {
	defer close(jobs)

	if cfg.runFor <= 0 {
		for i := 0; i < cfg.iterations; i++ {
			jobs <- i
		}
		return
	}

	deadline := time.NewTimer(cfg.runFor)
	defer deadline.Stop()
	for i := 0; !cfg.capped || i < cfg.iterations; i++ {
		select {
		case <-deadline.C:
			return
		case jobs <- i:
		}
	}
}

func (r *runner) goodNumber(index int) string {
	return fmt.Sprintf("%s-%s-%d", r.cfg.prefix, r.runID, index)
}

// runScenario выполняет шаги выбранного режима над одной записью.
func (r *runner) runScenario(client goodsClient, index int) (err error) {
	start := time.Now()
	defer func() { r.stats.observe(stepScenario, time.Since(start), codeOf(err)) }()

	good := domain.Good{
		GoodNumber: r.goodNumber(index),
		Name:       "load test good",
		Quantity:   1,
		Unit:       r.cfg.unit,
		Value:      r.cfg.value,
	}

	err = r.step(stepCreate, func(ctx context.Context) error {
		created, err := client.Create(ctx, good)
		if err == nil && created.GoodNumber != good.GoodNumber {
			return status.Errorf(codes.Internal, "create returned goodNumber %q, want %q", created.GoodNumber, good.GoodNumber)
		}
		return err
	})
	if err != nil {
		return err
	}

	switch r.cfg.scenario {
	case scenarioCreate:
		return nil
	case scenarioCreateQuery:
		return r.step(stepList, func(ctx context.Context) error {
			return expectListed(ctx, client, good.GoodNumber)
		})
	}

	err = r.step(stepUpdate, func(ctx context.Context) error {
		_, err := client.Update(ctx, good.GoodNumber, domain.Patch{"quantity": float64(index%10 + 2)})
		return err
	})
	if err != nil {
		return err
	}

	if r.cfg.scenario == scenarioFull || deleteAfterUpdate(index, r.cfg.deletePct) {
		return r.step(stepDelete, func(ctx context.Context) error {
			result, err := client.Delete(ctx, good.GoodNumber)
			if err == nil && !result.Success {
				return status.Error(codes.NotFound, result.Message)
			}
			return err
		})
	}
	return nil
}

// step выполняет один вызов с таймаутом и записывает его длительность и код.
func (r *runner) step(name string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.rpcTimeout)
	defer cancel()

	start := time.Now()
	err := call(ctx)
	r.stats.observe(name, time.Since(start), codeOf(err))
	return err
}

// expectListed ищет запись фильтром по ключу и ждёт ровно одно совпадение.
func expectListed(ctx context.Context, client goodsClient, key string) error {
	result, err := client.List(ctx, domain.Query{
		Filter: []domain.FilterClause{{Field: domain.KindGood.KeyField(), Operation: domain.OpEqual, Value: key}},
		Page:   &domain.PageSpec{Limit: 1},
	})
	if err != nil {
		return err
	}
	if result.TotalCount != 1 || len(result.Items) != 1 {
		return status.Errorf(codes.Internal, "list by %s=%s matched %d records", domain.KindGood.KeyField(), key, result.TotalCount)
	}
	return nil
}

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func deleteAfterUpdate(index, pct int) bool {
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	default:
		return index%100 < pct
	}
}
