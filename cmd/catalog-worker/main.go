package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	catalogkafka "github.com/dmehra2102/storefront/internal/catalog/infrastructure/kafka"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/health"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const service = "catalog-worker"

// dedupTTL outlives any realistic redelivery window of the consumer group.
const dedupTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	log := logging.New(logging.Options{Service: service, Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, service, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := postgres.Connect(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	catalog := catalogapp.NewService(catalogpg.NewRepository(log, pool))
	reader := catalogkafka.NewReader(cfg.KafkaBrokers, cfg.OrderTopic, cfg.ConsumerGroup)
	consumer := catalogkafka.NewConsumer(log, reader, catalog, idempotency.NewStore(rdb, dedupTTL))

	checker := health.NewChecker(log, map[string]health.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	gs, serveGRPC, err := checker.Serve(cfg.WorkerGRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consuming order events", "topic", cfg.OrderTopic, "group", cfg.ConsumerGroup)
		return consumer.Run(gctx)
	})
	g.Go(serveGRPC)
	g.Go(func() error { return checker.Watch(gctx, 10*time.Second) })
	g.Go(func() error {
		<-gctx.Done()
		gs.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("catalog-worker stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("catalog-worker shutdown complete")
}
