package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	catalogclient "github.com/Apurer/pantry-partner-api/internal/clients/http/catalog"
	pantrycatalog "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/external/catalog"
	pantryhttp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/http"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/http/mapper"
	pantrymemory "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/memory"
	pantryobs "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/observability"
	pantrypostgres "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/persistence/postgres"
	pantryworkflows "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/workflows"
	pantryapp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application"
	pantryports "github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
	"github.com/Apurer/pantry-partner-api/internal/platform/jobs"
	"github.com/Apurer/pantry-partner-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/pantry-partner-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/pantry-partner-api/internal/platform/postgres"
)

const shutdownTimeout = 10 * time.Second

// Run boots the pantry HTTP API with observability, storage, the catalog, and drain scheduling wired.
func Run(ctx context.Context) error {
	const serviceName = "pantry-api"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, cleanupDB := connectPostgres(ctx, cfg, logger)
	defer cleanupDB()
	snapshots, markups := BuildStores(db)
	catalog, err := BuildCatalog(cfg, logger)
	if err != nil {
		return err
	}

	drainer := pantryapp.NewDrainer(snapshots,
		pantryapp.WithDrainLogger(logger),
		pantryapp.WithDrainTracer(instruments.Tracer("internal.pantry.drain")),
		pantryapp.WithDrainMeter(instruments.Meter("internal.pantry.drain")),
	)
	queue := jobs.NewQueue(cfg.DrainQueueCapacity, jobs.WithLogger(logger))
	queue.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := queue.Shutdown(shutdownCtx); err != nil {
			logger.Warn("drain queue stopped before finishing pending drains", slog.String("error", err.Error()))
		}
	}()
	var scheduler pantryports.DrainScheduler = pantryworkflows.NewQueueDrainScheduler(queue, drainer)
	if db == nil {
		logger.Info("snapshots kept in memory, draining in-process")
	} else if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, draining in-process", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		scheduler = pantryworkflows.NewTemporalDrainScheduler(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	coreService := pantryapp.NewService(catalog, snapshots, markups, scheduler,
		pantryapp.WithLogger(logger),
		pantryapp.WithEstimateMultiplier(cfg.EstimateMultiplier),
	)
	service := pantryobs.New(coreService,
		pantryobs.WithLogger(logger),
		pantryobs.WithTracer(instruments.Tracer("internal.pantry.application")),
		pantryobs.WithMeter(instruments.Meter("internal.pantry.application")),
	)
	pantryAPI := pantryhttp.NewPantryAPI(service, pantryhttp.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		Bounds:        mapper.PageBounds{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize},
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(serviceName, pantryAPI),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Pantry API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Pantry API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Pantry API shutting down")
	return server.Shutdown(shutdownCtx)
}

// BuildStores picks the Postgres adapters when db is available and the in-memory ones otherwise.
func BuildStores(db *gorm.DB) (pantryports.SnapshotStore, pantryports.MarkupProvider) {
	if db == nil {
		return pantrymemory.NewSnapshotStore(), pantrymemory.NewMarkupProvider()
	}
	return pantrypostgres.NewSnapshotStore(db), pantrypostgres.NewMarkupProvider(db)
}

// BuildCatalog returns the upstream catalog source, or an empty in-memory catalog when no base URL is set.
func BuildCatalog(cfg Config, logger *slog.Logger) (pantryports.CatalogSource, error) {
	if cfg.CatalogBaseURL == "" {
		logger.Warn("CATALOG_BASE_URL not set, serving an empty in-memory catalog")
		return pantrymemory.NewCatalogSource(cfg.CatalogPageSize), nil
	}
	client, err := catalogclient.NewClient(cfg.CatalogBaseURL, catalogclient.NewHTTPClient(cfg.CatalogTimeout))
	if err != nil {
		return nil, err
	}
	return pantrycatalog.NewSource(client,
		pantrycatalog.WithPageSize(cfg.CatalogPageSize),
		pantrycatalog.WithLogger(logger),
	), nil
}

func connectPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory snapshot store")
		return nil, func() {}
	}
	pool, err := platformpostgres.PoolConfigFromEnv()
	if err != nil {
		logger.Warn("invalid postgres pool configuration, using defaults", slog.String("error", err.Error()))
		pool = platformpostgres.DefaultPoolConfig()
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN, pool)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return nil, func() {}
	}
	closeDB := platformpostgres.Closer(db, logger)
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to migrate postgres schema, falling back to memory", slog.String("error", err.Error()))
		closeDB()
		return nil, func() {}
	}
	logger.Info("snapshot store configured with postgres")
	return db, closeDB
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
