package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/pantry-partner-api/internal/app/api"
	pantryapp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application"
	pantryworkflows "github.com/Apurer/pantry-partner-api/internal/durable/temporal/workflows/pantry"
	"github.com/Apurer/pantry-partner-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/pantry-partner-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/pantry-partner-api/internal/platform/postgres"
	pantryactivities "github.com/Apurer/pantry-partner-api/internal/platform/temporal/activities/pantry"
)

func main() {
	ctx := context.Background()
	const serviceName = "pantry-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// Snapshots must land in the store the API reads from.
	pool, err := platformpostgres.PoolConfigFromEnv()
	if err != nil {
		logger.Error("invalid postgres pool configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN, pool)
	if err != nil {
		logger.Error("worker requires postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer platformpostgres.Closer(db, logger)()
	if err := migrations.Run(db); err != nil {
		logger.Error("failed to migrate postgres schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	snapshots, _ := api.BuildStores(db)
	catalog, err := api.BuildCatalog(cfg, logger)
	if err != nil {
		logger.Error("failed to configure catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	drainer := pantryapp.NewDrainer(snapshots,
		pantryapp.WithDrainLogger(logger),
		pantryapp.WithDrainTracer(instruments.Tracer("internal.pantry.drain")),
		pantryapp.WithDrainMeter(instruments.Meter("internal.pantry.drain")),
	)
	activities := pantryactivities.NewActivities(drainer, catalog)

	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")})
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	// Drains run one at a time per worker. Deploy a single replica to keep that bound across the deployment.
	w := worker.New(temporalClient, pantryworkflows.SnapshotDrainTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 1,
	})
	w.RegisterWorkflowWithOptions(pantryworkflows.SnapshotDrainWorkflow, workflow.RegisterOptions{Name: pantryworkflows.SnapshotDrainWorkflowName})
	w.RegisterActivityWithOptions(activities.DrainSnapshot, activity.RegisterOptions{Name: pantryactivities.DrainSnapshotActivityName})

	logger.Info("worker listening", slog.String("taskQueue", pantryworkflows.SnapshotDrainTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
