package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/dinecore/order-engine/internal/app/api"
	ordersobs "github.com/dinecore/order-engine/internal/domains/orders/adapters/observability"
	orderstax "github.com/dinecore/order-engine/internal/domains/orders/adapters/tax"
	ordersapp "github.com/dinecore/order-engine/internal/domains/orders/application"
	orderactivities "github.com/dinecore/order-engine/internal/durable/temporal/activities/orders"
	orderworkflows "github.com/dinecore/order-engine/internal/durable/temporal/workflows/orders"
	platformobservability "github.com/dinecore/order-engine/internal/platform/observability"
	platformpostgres "github.com/dinecore/order-engine/internal/platform/postgres"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	const serviceName = "order-engine-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
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

	db, cleanupDB := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanupDB()

	stores, uow, err := api.BuildStores(db, logger)
	if err != nil {
		logger.Error("failed to build stores", slog.String("error", err.Error()))
		os.Exit(1)
	}
	taxes := orderstax.NewStaticProvider(cfg.TaxEnabled, cfg.TaxRatePercent)
	orderService := ordersobs.New(
		ordersapp.NewService(stores, uow, taxes),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	activities := orderactivities.NewActivities(orderService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
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

	w := worker.New(temporalClient, orderworkflows.OrderCompletionTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderCompletionWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderCompletionWorkflowName})
	w.RegisterActivityWithOptions(activities.CompleteOrder, activity.RegisterOptions{Name: orderactivities.CompleteOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderCompletionTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
