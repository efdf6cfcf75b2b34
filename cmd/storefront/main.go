package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	cartcatalog "github.com/dmehra2102/storefront/internal/cart/infrastructure/catalog"
	carthttp "github.com/dmehra2102/storefront/internal/cart/infrastructure/http"
	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/storefront/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/health"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/identity"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const service = "storefront"

func main() {
	cfg := config.Load()
	log := logging.New(logging.Options{Service: service, Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err := cfg.RequireJWTSecret(); err != nil {
		log.Error("refusing to start", "err", err)
		os.Exit(1)
	}

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
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Error("pg migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	writer := orderkafka.NewWriter(log, cfg.KafkaBrokers)
	defer writer.Close()

	// Catalog
	catalog := catalogapp.NewService(catalogpg.NewRepository(log, pool))

	// Cart
	carts := cartapp.NewService(log, cartpg.NewRepository(log, pool), cartcatalog.NewLookup(catalog))

	// Orders and their outbox
	orders := orderapp.NewService(log, orderpg.NewRepository(log, pool))
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderTopic)
	host, _ := os.Hostname()
	relay := outbox.NewRelay(log, outbox.NewPostgresStore(log, pool), dispatch, service+"-"+host)

	resolver := identity.NewResolver(log, cfg.JWTSecret, cfg.SessionCookie)
	checker := health.NewChecker(log, map[string]health.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.AccessLog(log), middleware.Recoverer)
	r.Get("/healthz", checker.Live)
	r.Get("/readyz", checker.Readyz)
	r.Route("/api", func(r chi.Router) {
		r.Use(resolver.Middleware)
		r.Mount("/cart", carthttp.NewHandler(log, carts).Routes())
		r.With(resolver.RequireUser).Mount("/orders", orderhttp.NewHandler(log, orders).Routes(idempotency.Middleware(log, idem)))
		products := cataloghttp.NewHandler(log, catalog)
		r.Mount("/products", products.Routes(resolver.RequireUser))
		r.Mount("/categories", products.CategoryRoutes(resolver.RequireUser))
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	gs, serveGRPC, err := checker.Serve(cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc health listening", "addr", cfg.GRPCAddr)
		return serveGRPC()
	})
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return checker.Watch(gctx, 10*time.Second) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		gs.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("storefront stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("storefront shutdown complete")
}
