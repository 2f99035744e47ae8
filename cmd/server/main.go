package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	accapp "github.com/schoolgrants/backend/internal/application/accountability"
	budgetapp "github.com/schoolgrants/backend/internal/application/budget"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/infrastructure/auth"
	"github.com/schoolgrants/backend/internal/infrastructure/cache"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"github.com/schoolgrants/backend/internal/infrastructure/event"
	"github.com/schoolgrants/backend/internal/infrastructure/logger"
	"github.com/schoolgrants/backend/internal/infrastructure/persistence"
	"github.com/schoolgrants/backend/internal/infrastructure/scheduler"
	"github.com/schoolgrants/backend/internal/infrastructure/storage"
	"github.com/schoolgrants/backend/internal/infrastructure/telemetry"
	"github.com/schoolgrants/backend/internal/interfaces/http/handler"
	"github.com/schoolgrants/backend/internal/interfaces/http/middleware"
	"github.com/schoolgrants/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry: logs, traces, metrics, profiles
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log = logProvider.Bridge(log, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting grants backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database with zap-backed GORM logger and query tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.NewDBTracing(cfg.Telemetry, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Summary cache: Redis when enabled, in-memory otherwise
	summaryCache, closeCache, err := cache.NewSummaryCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateCache(ctx)
	if err != nil {
		log.Fatal("Failed to create summary cache", zap.Error(err))
	}

	// Receipt storage is optional; receipt endpoints answer 503 without it
	var receiptStorage accapp.ReceiptStorage
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ReceiptStorage(cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create receipt storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Warn("Receipt bucket check failed", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
		}
		receiptStorage = s3Storage
	}

	// Repositories
	settingsRepo := persistence.NewGormCapitationSettingsRepository(db.DB)
	budgetRepo := persistence.NewGormBudgetRepository(db.DB)
	learnerRegistry := persistence.NewGormLearnerRegistry(db.DB)
	schoolRegistry := persistence.NewGormSchoolRegistry(db.DB)
	accountabilityRepo := persistence.NewGormAccountabilityRepository(db.DB)
	reviewTx := persistence.NewGormReviewTransactor(db.DB)

	// Event bus with cache invalidation and business metrics
	metrics, err := telemetry.NewAccountabilityMetrics(meterProvider.Meter("schoolgrants/accountability"), log)
	if err != nil {
		log.Fatal("Failed to create accountability metrics", zap.Error(err))
	}
	eventBus := event.NewInMemoryEventBus(log)
	invalidator := accapp.NewSummaryCacheInvalidator(summaryCache, log)
	eventBus.Subscribe(invalidator, invalidator.EventTypes()...)
	metricsHandler := accapp.NewMetricsHandler(metrics)
	eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	settingsService := capapp.NewSettingsService(settingsRepo, log)
	budgetService := budgetapp.NewService(budgetRepo, learnerRegistry, schoolRegistry, settingsService, eventBus, log)
	reviewService := accapp.NewReviewService(reviewTx, settingsService, eventBus, metrics, log)
	trancheService := accapp.NewTrancheService(accountabilityRepo, eventBus, log)
	ledgerService := accapp.NewLedgerService(accountabilityRepo, eventBus, log)
	receiptService := accapp.NewReceiptService(accountabilityRepo, receiptStorage, log)
	summaryService := accapp.NewSummaryService(accountabilityRepo, summaryCache, log)

	// Background refresh of stored summaries
	refreshScheduler := scheduler.NewScheduler(cfg.Scheduler, scheduler.NewRefreshExecutor(summaryService), log)
	refreshTrigger := scheduler.NewTrigger(cfg.Scheduler.Interval, refreshScheduler, accountabilityRepo, log)
	if cfg.Scheduler.Enabled {
		if err := refreshScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start summary refresh scheduler", zap.Error(err))
		}
		if err := refreshTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start summary refresh trigger", zap.Error(err))
		}
	}

	// Handlers
	handlers := router.Handlers{
		System:         handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.Pinger{"database": db}),
		Settings:       handler.NewSettingsHandler(settingsService),
		Budget:         handler.NewBudgetHandler(budgetService, reviewService),
		Accountability: handler.NewAccountabilityHandler(trancheService, ledgerService, receiptService, summaryService),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order matters: the request id and logger must exist before
	// anything logs, and the span must exist before it is enriched.
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	jwtConfig := middleware.DefaultJWTConfig(auth.NewVerifier(cfg.JWT), cfg.JWT.Required)
	jwtConfig.Logger = log

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.HTTPMetrics(meterProvider.Meter("schoolgrants/http")),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.SpanEnricher(),
	)

	router.Mount(engine, handlers)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdown(shutdownCtx, log,
		refreshTrigger.Stop,
		refreshScheduler.Stop,
		func(ctx context.Context) error { return eventBus.Stop(ctx) },
		func(context.Context) error { return closeCache() },
		func(context.Context) error { return db.Close() },
		func(context.Context) error { return profiler.Stop() },
		meterProvider.Shutdown,
		tracerProvider.Shutdown,
		logProvider.Shutdown,
	)

	log.Info("Server exited gracefully")
}

// shutdown runs the release steps in order and logs each failure
func shutdown(ctx context.Context, log *zap.Logger, steps ...func(context.Context) error) {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			log.Error("Shutdown step failed", zap.Error(err))
		}
	}
}
