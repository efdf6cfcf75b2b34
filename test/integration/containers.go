// Package integration starts the containers the integration tests run
// against. Tests using it are built with -tags integration.
package integration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmehra2102/storefront/pkg/postgres"
)

const startupTimeout = 2 * time.Minute

type Env struct {
	PG    *tcpostgres.PostgresContainer
	Redis *tcredis.RedisContainer
	Kafka *kafka.KafkaContainer

	Pool  *pgxpool.Pool
	RDB   *redis.Client
	KAddr []string
}

type Option func(*options)

type options struct{ kafka bool }

// WithKafka also starts a single-node Kafka broker.
func WithKafka() Option { return func(o *options) { o.kafka = true } }

// Setup starts Postgres (schema applied) and Redis. Call Teardown when done.
func Setup(ctx context.Context, opts ...Option) (env *Env, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	env = &Env{}
	defer func() {
		if err != nil {
			env.Teardown(context.Background())
			env = nil
		}
	}()

	env.PG, err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	if err != nil {
		return env, err
	}
	pgURL, err := env.PG.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return env, err
	}
	if env.Pool, err = postgres.Connect(ctx, pgURL); err != nil {
		return env, err
	}
	if err = postgres.Migrate(ctx, env.Pool); err != nil {
		return env, err
	}

	env.Redis, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return env, err
	}
	redisURL, err := env.Redis.ConnectionString(ctx)
	if err != nil {
		return env, err
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return env, err
	}
	env.RDB = redis.NewClient(redisOpts)

	if o.kafka {
		env.Kafka, err = kafka.Run(ctx,
			"confluentinc/confluent-local:7.5.0",
			kafka.WithClusterID("storefront-test"),
		)
		if err != nil {
			return env, err
		}
		if env.KAddr, err = env.Kafka.Brokers(ctx); err != nil {
			return env, err
		}
	}
	return env, nil
}

// Reset empties every table between tests.
func (e *Env) Reset(ctx context.Context) error {
	_, err := e.Pool.Exec(ctx, `TRUNCATE outbox, order_items, orders, cart_items, carts, product_reviews, products, brands, categories RESTART IDENTITY CASCADE`)
	if err != nil {
		return err
	}
	return e.RDB.FlushAll(ctx).Err()
}

func (e *Env) Teardown(ctx context.Context) {
	if e.RDB != nil {
		_ = e.RDB.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.Redis != nil {
		_ = e.Redis.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
