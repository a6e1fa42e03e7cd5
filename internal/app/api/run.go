package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	couponmemory "github.com/dinecore/order-engine/internal/domains/coupons/adapters/memory"
	couponpostgres "github.com/dinecore/order-engine/internal/domains/coupons/adapters/persistence/postgres"
	loyaltymemory "github.com/dinecore/order-engine/internal/domains/loyalty/adapters/memory"
	loyaltypostgres "github.com/dinecore/order-engine/internal/domains/loyalty/adapters/persistence/postgres"
	ordershttp "github.com/dinecore/order-engine/internal/domains/orders/adapters/http"
	ordersmemory "github.com/dinecore/order-engine/internal/domains/orders/adapters/memory"
	ordersobs "github.com/dinecore/order-engine/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/dinecore/order-engine/internal/domains/orders/adapters/persistence/postgres"
	orderstax "github.com/dinecore/order-engine/internal/domains/orders/adapters/tax"
	ordersworkflows "github.com/dinecore/order-engine/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/dinecore/order-engine/internal/domains/orders/application"
	ordersports "github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/platform/migrations"
	platformobservability "github.com/dinecore/order-engine/internal/platform/observability"
	platformpostgres "github.com/dinecore/order-engine/internal/platform/postgres"
)

// Run boots the order engine HTTP API with observability, stores, and workflows wired.
func Run(ctx context.Context) error {
	const serviceName = "order-engine-api"
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
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

	db, cleanupDB := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanupDB()

	stores, uow, err := BuildStores(db, logger)
	if err != nil {
		return err
	}
	taxes := orderstax.NewStaticProvider(cfg.TaxEnabled, cfg.TaxRatePercent)

	coreService := ordersapp.NewService(stores, uow, taxes)
	orderService := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	var orchestrator ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, completing orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orchestrator = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	ordershttp.NewHandler(orderService, orchestrator).Register(router)

	addr := ":" + cfg.Port
	logger.Info("order engine API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("order engine API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// BuildStores wires either the Postgres-backed stores or the in-memory
// development set, both behind the same ports. The worker reuses it so both
// processes see identical persistence.
func BuildStores(db *gorm.DB, logger *slog.Logger) (ordersports.TxStores, ordersports.UnitOfWork, error) {
	if db == nil {
		orderStore := ordersmemory.NewOrderStore()
		billStore := ordersmemory.NewBillStore()
		couponStore := couponmemory.NewStore()
		loyaltyStore := loyaltymemory.NewStore()
		stores := ordersports.TxStores{
			Orders:  orderStore,
			Bills:   billStore,
			Coupons: couponStore,
			Loyalty: loyaltyStore,
		}
		uow := ordersmemory.NewUnitOfWork(stores, orderStore, billStore, couponStore, loyaltyStore)
		return stores, uow, nil
	}
	if err := migrations.Run(db); err != nil {
		return ordersports.TxStores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("order stores configured with postgres")
	stores := ordersports.TxStores{
		Orders:  orderspostgres.NewOrderStore(db),
		Bills:   orderspostgres.NewBillStore(db),
		Coupons: couponpostgres.NewStore(db),
		Loyalty: loyaltypostgres.NewStore(db),
	}
	return stores, orderspostgres.NewUnitOfWork(db), nil
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
	return slog.Default()
}
