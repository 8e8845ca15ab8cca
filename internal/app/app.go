package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/logistics/internal/health"
	"github.com/vladislavdragonenkov/logistics/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/logistics/internal/service/grpc"
	graphqlapi "github.com/vladislavdragonenkov/logistics/internal/service/graphql"
	httpapi "github.com/vladislavdragonenkov/logistics/internal/service/http"
	"github.com/vladislavdragonenkov/logistics/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает gRPC, REST/GraphQL и служебный HTTP-сервер и блокируется до
// отмены ctx или ошибки одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithFields(version.Fields()).Info("starting logistics service")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	producer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(producer, logger)

	// События изменений пишутся в outbox, только если их есть кому публиковать.
	var outboxRepo domain.OutboxRepository
	if producer != nil {
		outboxRepo = deps.outboxRepo
	}

	services, err := initRecordServices(ctx, deps.snapshots, outboxRepo, metrics.NewRecordMetrics(), logger)
	if err != nil {
		return err
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if cfg.KafkaBrokers != "" {
		healthHandler.RegisterChecker("kafka", kafkaChecker(producer, kafkaErr))
	}
	if outboxRepo != nil {
		healthHandler.RegisterChecker("outbox", outboxChecker(outboxRepo, time.Now))
	}

	grpcServer := newGRPCServer(services, logger)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	apiHandler, err := newAPIHandler(services, cfg, logger)
	if err != nil {
		return err
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := &http.Server{Handler: apiHandler, ReadHeaderTimeout: 5 * time.Second}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := startOutboxWorker(workerCtx, cfg, outboxRepo, producer, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC server listening on %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("REST API on %s/api, GraphQL on %s/graphql", apiLis.Addr(), apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := func() {
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		shutdownOutboxWorker(cancelWorker, workerDone, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
		stop()
		return ctx.Err()
	case err := <-errCh:
		stop()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer собирает gRPC-сервер с сервисами коллекций, метриками и reflection.
func newGRPCServer(services *recordServices, logger *log.Entry) *grpc.Server {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		loggingInterceptor(logger.WithField("layer", "grpc")),
	))
	grpcsvc.Register(server, services.orders, services.containers, services.goods, logger.WithField("layer", "grpc"))
	grpcMetrics.InitializeMetrics(server)

	// grpcurl и ghz обходятся без .proto благодаря reflection.
	reflection.Register(server)
	return server
}

// loggingInterceptor пишет по строке на каждый unary-вызов.
func loggingInterceptor(logger *log.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := logger.WithFields(log.Fields{
			"method":   info.FullMethod,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Debug("grpc call failed")
		} else {
			entry.Debug("grpc call")
		}
		return resp, err
	}
}

// newAPIHandler монтирует REST-ресурсы под /api/ и GraphQL под /graphql.
func newAPIHandler(services *recordServices, cfg Config, logger *log.Entry) (http.Handler, error) {
	schema, err := graphqlapi.NewSchema(services.graphqlRepositories(), logger.WithField("layer", "graphql"))
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", httpapi.NewHandler(
		services.httpRepositories(),
		httpapi.Config{PublicBaseURL: cfg.PublicBaseURL},
		logger.WithField("layer", "http"),
	))
	mux.Handle("/graphql", graphqlapi.NewHandler(schema, logger.WithField("layer", "graphql")))
	return mux, nil
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop timed out, forcing grpc server stop")
		server.Stop()
	}
}

// startMetricsServer запускает /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
