package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-procure/internal/app"
	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/config"
	"github.com/noah-isme/backend-procure/internal/events"
	"github.com/noah-isme/backend-procure/internal/health"
	"github.com/noah-isme/backend-procure/internal/inquiry"
	"github.com/noah-isme/backend-procure/internal/inventory"
	"github.com/noah-isme/backend-procure/internal/obs"
	"github.com/noah-isme/backend-procure/internal/queue"
	"github.com/noah-isme/backend-procure/internal/ratelimit"
	"github.com/noah-isme/backend-procure/internal/reference"
	"github.com/noah-isme/backend-procure/internal/resilience"
	"github.com/noah-isme/backend-procure/internal/security"
	"github.com/noah-isme/backend-procure/internal/session"
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
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "procure")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "procure-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if envBool("DB_AUTO_MIGRATE", true) {
		migrations := envOrDefault("DB_MIGRATIONS_PATH", "migrations")
		m, err := migrate.New("file://"+migrations, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open migrations")
		}
		if err := app.RunMigrations(m); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "procure-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	refService := &reference.Service{
		Store:  &reference.Store{Pool: pool},
		Logger: logger,
	}
	inventoryService, err := inventory.NewService(inventory.ServiceConfig{
		Store:    &inventory.Store{Pool: pool},
		Cache:    inventory.NewCache(redisClient, cfg.InventoryCacheTTL),
		Resolver: refService,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise inventory service")
	}
	refService.Items = inventoryService
	inventoryHandler := &inventory.Handler{Svc: inventoryService, Validate: validate}
	refHandler := &reference.Handler{Svc: refService, Validate: validate}

	inquiryStore := &inquiry.Store{Pool: pool}
	sessionStore := &session.Store{R: redisClient, TTL: cfg.SessionTTL}

	supplierService, err := supplier.NewService(supplier.ServiceConfig{
		Store:  &supplier.Store{Pool: pool},
		Source: inquiryStore,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise supplier service")
	}
	supplierHandler := &supplier.Handler{Svc: supplierService, Validate: validate}

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

	enqueuer := queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix, DedupTTL: cfg.IdempotencyTTL}
	bus := &events.Bus{
		Store: &events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{
			queue.SyncNotifier{Enq: enqueuer, MaxAttempts: cfg.QueueMaxAttempts},
		},
	}

	inquiryService, err := inquiry.NewService(inquiry.ServiceConfig{
		Store:     inquiryStore,
		Submitter: supplyClient,
		Guard:     sessionStore,
		Events:    bus,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise inquiry service")
	}
	inquiryHandler := &inquiry.Handler{Svc: inquiryService, Validate: validate}

	compareService := compare.NewService(compare.ServiceConfig{
		Source:        inquiryStore,
		Sessions:      sessionStore,
		Logger:        logger,
		ExchangeRate:  cfg.ExchangeRate,
		DefaultMarkup: cfg.DefaultImportMarkup,
		Tolerance:     cfg.PriceTolerance,
	})
	compareHandler := &compare.Handler{Svc: compareService, Validate: validate}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limits := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: time.Minute,
			Max:    cfg.RateLimitPerMinute,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: envInt64("SECURE_MAX_BODY_BYTES", 1<<20)}.Middleware)
	r.Use(limits.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/items", func(it chi.Router) {
			it.Get("/", inventoryHandler.List)
			it.Put("/", inventoryHandler.Save)
			it.Get("/{itemID}", inventoryHandler.Detail)
			it.Delete("/{itemID}", inventoryHandler.Remove)
		})

		v.Route("/suppliers", func(sup chi.Router) {
			sup.Get("/", supplierHandler.List)
			sup.Put("/", supplierHandler.Save)
			sup.Get("/{supplierID}", supplierHandler.Get)
			sup.Delete("/{supplierID}", supplierHandler.Remove)
		})

		v.Route("/references", func(ref chi.Router) {
			ref.Post("/", refHandler.Declare)
			ref.Get("/items/{itemID}", refHandler.Resolve)
			ref.Delete("/{id}", refHandler.Remove)
		})

		v.Route("/inquiries", func(inq chi.Router) {
			inq.With(idem.Middleware).Post("/", inquiryHandler.Create)
			inq.Get("/", inquiryHandler.List)

			inq.Route("/{inquiryID}", func(one chi.Router) {
				one.Get("/", inquiryHandler.Get)
				one.Post("/close", inquiryHandler.Close)
				one.With(idem.Middleware).Put("/prices", inquiryHandler.EditPrice)

				one.Get("/responses", supplierHandler.Responses)
				one.Get("/suppliers/{supplierID}/coverage", supplierHandler.Coverage)
				one.Post("/sync", syncTrigger(enqueuer, cfg.QueueMaxAttempts, logger))

				one.Get("/comparison", compareHandler.View)
				one.Post("/comparison/toggle", compareHandler.Toggle)
				one.Put("/comparison/override", compareHandler.SetOverride)
				one.Delete("/comparison/override", compareHandler.ClearOverride)
				one.Delete("/comparison/session", compareHandler.CloseSession)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	health.SetReady(true)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		health.SetReady(false)
		drain := envDurationMillis("SHUTDOWN_DRAIN_MS", 2000)
		logger.Info().Dur("drain", drain).Msg("draining before shutdown")
		time.Sleep(drain)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		logger.Info().Msg("server stopped")
	}
}

// syncTrigger schedules an out-of-band supplier response sync for an inquiry.
func syncTrigger(enq queue.Enqueuer, maxAttempts int, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inquiryID := chi.URLParam(r, "inquiryID")
		if strings.TrimSpace(inquiryID) == "" {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "inquiry id is required", nil)
			return
		}
		if err := queue.EnqueueSync(r.Context(), enq, inquiryID, maxAttempts, 0); err != nil {
			logger.Error().Err(err).Str("inquiry_id", inquiryID).Msg("enqueue sync")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not schedule sync", nil)
			return
		}
		common.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
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

func envInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
