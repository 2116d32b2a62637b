package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-procure/internal/config"
	"github.com/noah-isme/backend-procure/internal/inquiry"
	"github.com/noah-isme/backend-procure/internal/lock"
	"github.com/noah-isme/backend-procure/internal/obs"
	"github.com/noah-isme/backend-procure/internal/queue"
	"github.com/noah-isme/backend-procure/internal/resilience"
	"github.com/noah-isme/backend-procure/internal/supplier"
	"github.com/noah-isme/backend-procure/internal/supply"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget("supplier-api").
		WithLogger(logger)
	supplyClient := &supply.Client{
		BaseURL: cfg.SupplierAPIBaseURL,
		APIKey:  cfg.SupplierAPIKey,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      float64(cfg.RetryJitterPercent) / 100,
			Timeout:     cfg.OutboundTimeout,
		},
		Logger: logger,
	}

	inquiryStore := &inquiry.Store{Pool: pool}
	supplierService, err := supplier.NewService(supplier.ServiceConfig{
		Store:  &supplier.Store{Pool: pool},
		Source: inquiryStore,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise supplier service")
	}
	syncHandler := queue.SyncHandler{
		Fetcher:   supplyClient,
		Quotes:    inquiryStore,
		Responses: supplierService,
		Logger:    logger,
	}
	locker := lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff}

	syncWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              queue.KindSyncSupplierResponses,
		Concurrency:       envInt("QUEUE_CONCURRENCY_SYNC", 4),
		VisibilityTimeout: cfg.OutboundTimeout + 30*time.Second,
		RetryBase:         cfg.RetryBase,
		RetryJitter:       float64(cfg.RetryJitterPercent) / 100,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			return syncHandler.Handle(jobCtx, task)
		},
	}

	enqueuer := queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix, DedupTTL: cfg.SyncInterval}
	go runPeriodicSync(ctx, cfg, enqueuer, inquiryStore, locker, logger)

	logger.Info().Msg("worker starting")
	if err := syncWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

// runPeriodicSync re-enqueues a response sync for every open inquiry on a
// fixed interval. The distributed lock keeps one scheduler active when
// multiple worker replicas run.
func runPeriodicSync(ctx context.Context, cfg *config.Config, enq queue.Enqueuer, store *inquiry.Store, locker lock.Locker, logger zerolog.Logger) {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := locker.WithLock(ctx, "lock:sync-scheduler", cfg.LockTTL, func(lockCtx context.Context) error {
			inquiries, err := store.List(lockCtx)
			if err != nil {
				return err
			}
			for _, inq := range inquiries {
				if inq.Status != inquiry.StatusOpen {
					continue
				}
				if err := queue.EnqueueSync(lockCtx, enq, inq.InquiryID, cfg.QueueMaxAttempts, interval); err != nil {
					logger.Error().Err(err).Str("inquiry_id", inq.InquiryID).Msg("enqueue periodic sync")
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("periodic sync pass failed")
		}
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "procure-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
