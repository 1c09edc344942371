package main

import (
	"context"
	"fmt"

	appcatalog "github.com/erp/stockcore/internal/application/catalog"
	appinv "github.com/erp/stockcore/internal/application/inventory"
	apppipeline "github.com/erp/stockcore/internal/application/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/cache"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/infrastructure/strategy"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// runtime is the wired application: database, ledger services and telemetry
type runtime struct {
	db          *persistence.Database
	idempotency shared.IdempotencyStore

	inventory  *appinv.InventoryService
	reconciler *appinv.Reconciler
	catalog    *appcatalog.CatalogService
	pipelines  *apppipeline.PipelineService
	orders     *apppipeline.OrderService

	closers []func(context.Context) error
	log     *zap.Logger
}

func newRuntime(ctx context.Context, cfg *config.Config, log *zap.Logger) (*runtime, error) {
	rt := &runtime{log: log}
	ok := false
	defer func() {
		if !ok {
			rt.close(context.Background())
		}
	}()

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, tel.Shutdown)
	meter := tel.Meter()

	opts := []persistence.Option{persistence.WithLogger(log, cfg.Log.SQLLevel)}
	if cfg.Database.Driver == persistence.DriverSQLite {
		opts = append(opts, persistence.WithAutoMigrate())
	}
	rt.db, err = persistence.NewDatabase(&cfg.Database, opts...)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.db.Close() })

	if _, err := telemetry.InstrumentDB(rt.db.DB, meter, telemetry.DBConfig{
		TraceEnabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        rt.db.Driver,
	}, log); err != nil {
		return nil, fmt.Errorf("instrument database: %w", err)
	}

	metrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		return nil, err
	}

	registry, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		return nil, err
	}
	selector, err := registry.GetBatchStrategy(cfg.Ledger.BatchPolicy)
	if err != nil {
		return nil, err
	}

	rt.idempotency, err = cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).
		Create(ctx, cfg.Ledger.IdempotencyBackend)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.idempotency.Close() })

	uow := appinv.NewUnitOfWork(rt.db.TransactionScope(log), appinv.RetryConfig{
		MaxRetries:       cfg.Ledger.MaxRetries,
		BaseDelay:        cfg.Ledger.RetryBaseDelay,
		OperationTimeout: cfg.Ledger.OperationTimeout,
	}, log)
	uow.SetMetrics(metrics)
	ledger := appinv.NewLedger(selector, log)

	rt.inventory = appinv.NewInventoryService(uow, ledger, log)
	rt.inventory.SetMetrics(metrics)
	rt.reconciler = appinv.NewReconciler(uow, log)
	rt.catalog = appcatalog.NewCatalogService(uow, ledger, log)
	rt.pipelines = apppipeline.NewPipelineService(uow, log)
	rt.orders = apppipeline.NewOrderService(uow, ledger, log,
		apppipeline.WithIdempotencyStore(rt.idempotency, shared.IdempotencyConfig{
			TTL:     cfg.Ledger.IdempotencyTTL,
			Enabled: true,
		}),
		apppipeline.WithMetrics(metrics),
	)

	log.Info("runtime ready",
		zap.String("driver", rt.db.Driver),
		zap.String("batch_policy", ledger.Policy()),
		zap.String("idempotency_backend", cfg.Ledger.IdempotencyBackend),
	)
	ok = true
	return rt, nil
}

// close releases resources in reverse order of acquisition
func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.log.Warn("shutdown step failed", zap.Error(err))
		}
	}
	rt.closers = nil
}

// withRuntime builds the runtime for the duration of fn
func (c *cli) withRuntime(ctx context.Context, fn func(rt *runtime) error) error {
	rt, err := newRuntime(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())
	return fn(rt)
}
