package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/B09-Adpro/udehnih-review-rating/internal/auth"
	"github.com/B09-Adpro/udehnih-review-rating/internal/client"
	"github.com/B09-Adpro/udehnih-review-rating/internal/config"
	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/internal/event"
	handler "github.com/B09-Adpro/udehnih-review-rating/internal/handler/http"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository/memory"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository/postgres"
	redisrepo "github.com/B09-Adpro/udehnih-review-rating/internal/repository/redis"
	"github.com/B09-Adpro/udehnih-review-rating/internal/service"
	"github.com/B09-Adpro/udehnih-review-rating/migrations"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/database"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/health"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/httpclient"
	pkgkafka "github.com/B09-Adpro/udehnih-review-rating/pkg/kafka"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/tracing"
)

// App wires together all dependencies and runs the review-rating service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	repo, err := a.openStore(ctx, healthHandler)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	// Review lifecycle events.
	var eventProducer service.EventProducer = event.NoopProducer{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Upstream lookups share one transport, each behind its own breaker.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.UpstreamTimeout(),
		MaxRetries:      cfg.UpstreamMaxRetries,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 100,
	})
	courseClient := client.NewCourseClient(a.breaker(baseClient, "course-service"), cfg.CourseServiceURL, cfg.UpstreamTimeout())
	studentClient := client.NewStudentClient(a.breaker(baseClient, "auth-service"), cfg.AuthServiceURL, cfg.UpstreamTimeout())

	reviewService := service.NewReviewService(
		repo,
		domain.NewReviewFactory(),
		courseClient,
		studentClient,
		eventProducer,
		service.Options{
			Enrichment:      service.EnrichmentPolicy(cfg.EnrichmentPolicy),
			AnonymousEdit:   service.AnonymousEditPolicy(cfg.AnonymousEditPolicy),
			ListConcurrency: cfg.ListConcurrency,
		},
		logger,
	)

	resolver, err := identityResolver(cfg)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	// HTTP router.
	router := handler.NewRouter(reviewService, healthHandler, resolver, handler.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout(),
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStore connects the configured review store and registers its readiness check.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreBackend {
	case config.StorePostgres:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(pool, handler.ServiceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}

		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return postgres.NewReviewRepository(pool), nil

	case config.StoreRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = rdb
		logger.Info("connected to Redis", slog.String("addr", rdb.Options().Addr))

		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		return redisrepo.NewReviewRepository(rdb), nil

	case config.StoreMemory:
		logger.Warn("using in-memory review store, data is lost on restart")
		return memory.NewReviewRepository(), nil

	default:
		return nil, fmt.Errorf("unknown review store %q", cfg.StoreBackend)
	}
}

func (a *App) breaker(doer httpclient.Doer, name string) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  a.cfg.CBMaxRequests,
		Interval:     time.Duration(a.cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(a.cfg.CBTimeout) * time.Second,
		FailureRatio: a.cfg.CBFailureRatio,
		MinRequests:  a.cfg.CBMinRequests,
	}
	a.logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", a.cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	return httpclient.NewCircuitBreakerClient(doer, cbCfg, a.logger)
}

func identityResolver(cfg *config.Config) (middleware.IdentityResolver, error) {
	switch cfg.IdentitySource {
	case config.IdentityHeader:
		return auth.HeaderResolver(), nil
	case config.IdentityJWT:
		verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTSecretBase64, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
		return verifier.Resolver(), nil
	default:
		return nil, fmt.Errorf("unknown identity source %q", cfg.IdentitySource)
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer, Kafka producer and the review store
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources flushes spans after the HTTP drain so in-flight request spans
// are captured, then closes the producer and the store.
func (a *App) closeResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
