package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/washline/api/internal/di"
	"github.com/washline/api/internal/handlers"
	"github.com/washline/api/internal/platform/config"
	pfirestore "github.com/washline/api/internal/platform/firestore"
	"github.com/washline/api/internal/platform/idempotency"
	"github.com/washline/api/internal/platform/jobs"
	"github.com/washline/api/internal/platform/observability"
	firestoreRepo "github.com/washline/api/internal/repositories/firestore"
	"github.com/washline/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, cfg.Firestore)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var eventPublisher services.OrderEventPublisher
	var eventsTopic *pubsub.Topic
	if cfg.PubSub.Enabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		eventsTopic = pubsubClient.Topic(cfg.PubSub.EventsTopic)
		defer eventsTopic.Stop()

		eventPublisher, err = jobs.NewPubSubOrderEventPublisher(eventsTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		logger.Info("order event publishing enabled", zap.String("topic", cfg.PubSub.EventsTopic))
	}

	serviceLogger := zapEventLogger(logger.Named("orders"))

	container, err := di.NewContainer(ctx, cfg, registry,
		di.WithOrderEventPublisher(eventPublisher),
		di.WithServiceLogger(serviceLogger),
		di.WithBuildInfo(buildInfo),
	)
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}

	seedCtx, seedCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := container.Services.Counters.SeedFromExisting(seedCtx); err != nil {
		logger.Warn("booking counter seed failed", zap.Error(err))
	}
	seedCancel()

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Features.EnableIdempotency {
		idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
		middlewares = append(middlewares, idempotency.Middleware(
			idempotencyStore,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
			idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		))

		if cfg.Idempotency.CleanupInterval > 0 {
			cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
			cleanupWG.Add(1)
			go func() {
				defer cleanupWG.Done()
				cleanupLogger := logger.Named("idempotency")
				for {
					select {
					case <-cleanupTicker.C:
						runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
						removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
						cancel()
						if err != nil {
							cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
							continue
						}
						if removed > 0 {
							cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
						}
					case <-cleanupCtx.Done():
						return
					}
				}
			}()
		}
	}

	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	catalogHandlers := handlers.NewCatalogHandlers(container.Services.Catalog)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithBookingRoutes(orderHandlers.BookingRoutes),
		handlers.WithBookingMiddlewares(handlers.RateLimitMiddleware(60, time.Minute)),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("washline api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func zapEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("order event", zFields...)
	}
}
