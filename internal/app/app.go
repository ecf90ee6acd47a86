package app

import (
	"context"
	"fmt"
	"time"

	"courier-sync/internal/core/cache"
	"courier-sync/internal/core/config"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/proxy"
	"courier-sync/internal/core/server"
	reconcileadapters "courier-sync/internal/features/reconcile/adapters"
	reconcilehandler "courier-sync/internal/features/reconcile/handler"
	reconcileports "courier-sync/internal/features/reconcile/ports"
	reconcileservice "courier-sync/internal/features/reconcile/service"
	trackingadapter "courier-sync/internal/features/tracking/adapters"
	trackinghandler "courier-sync/internal/features/tracking/handler"
	trackingports "courier-sync/internal/features/tracking/ports"
	trackingservice "courier-sync/internal/features/tracking/service"

	"go.uber.org/zap"
)

// Store is the persistence the engine needs.
type Store interface {
	reconcileports.TenantStore
	reconcileports.OrderStore
}

// Deps are the opened backing services.
type Deps struct {
	Store Store
	// Redis is optional. Without it events are logged and reports kept in memory.
	Redis *cache.RedisAdapter
}

// App wires the reconciliation engine and its trigger surfaces.
type App struct {
	Orchestrator *reconcileservice.Orchestrator
	Registry     *reconcileservice.CourierRegistry
	Tracking     *trackingservice.TrackingService
	Periodic     *reconcileservice.PeriodicRunner

	cfg     *config.AppConfig
	closers []func() error
}

// Open connects to Postgres and, when configured, Redis, then assembles the App.
func Open(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	l := logger.Get()

	db, err := reconcileadapters.OpenPostgres(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant store: %w", err)
	}
	l.Info("Tenant store connection verified")

	deps := Deps{Store: reconcileadapters.NewPostgresStore(db)}
	closers := []func() error{db.Close}

	if cfg.Redis.URL != "" {
		redisAdapter, err := cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisAdapter.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = redisAdapter.Close()
			closeAll(closers)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Redis = redisAdapter
		closers = append(closers, redisAdapter.Close)
		l.Info("Redis connection verified")
	} else {
		l.Warn("REDIS_URL not set, change events are only logged and run reports kept in memory")
	}

	a := New(cfg, deps)
	a.closers = closers
	return a, nil
}

// New assembles the App over already opened dependencies.
func New(cfg *config.AppConfig, deps Deps) *App {
	var (
		notifier reconcileports.Notifier         = reconcileadapters.LogNotifier{}
		reports  reconcileports.ReportRepository = &reconcileadapters.MemoryReportRepository{}
	)
	if deps.Redis != nil {
		notifier = reconcileadapters.NewRedisNotifier(deps.Redis)
		reports = reconcileadapters.NewRedisReportRepository(deps.Redis)
	}

	tracking := trackingservice.NewTrackingService(Providers(cfg), cfg.Couriers.Timeout)
	registry := reconcileservice.NewCourierRegistry(deps.Store)
	worker := reconcileservice.NewWorker(tracking, deps.Store, notifier)
	orchestrator := reconcileservice.NewOrchestrator(
		registry,
		reconcileservice.NewOrderSelector(deps.Store),
		reconcileservice.NewBatchScheduler(worker, cfg.Sync.PacingDelay),
		reports,
		cfg.Sync,
	)

	logger.Get().Info("Reconciliation engine ready",
		zap.Strings("providers", tracking.ProviderIDs()),
		zap.Int("batch_size", cfg.Sync.BatchSize),
		zap.Int("concurrency", cfg.Sync.Concurrency),
	)

	return &App{
		Orchestrator: orchestrator,
		Registry:     registry,
		Tracking:     tracking,
		Periodic:     reconcileservice.NewPeriodicRunner(orchestrator, cfg.Sync.Interval),
		cfg:          cfg,
	}
}

// Providers returns every registered courier adapter.
func Providers(cfg *config.AppConfig) []trackingports.TrackingProvider {
	c := cfg.Couriers
	return []trackingports.TrackingProvider{
		trackingadapter.NewSteadfastAdapter(c.SteadfastURL, c.Timeout, c.RateLimit),
		trackingadapter.NewPathaoAdapter(c.PathaoURL, c.Timeout, c.RateLimit),
		trackingadapter.NewPaperflyAdapter(c.PaperflyURL, c.Timeout, c.RateLimit),
		trackingadapter.NewCoordinadoraAdapter(c.CoordinadoraURL, proxy.FromConfig(cfg.Proxy), c.RateLimit),
	}
}

// RegisterRoutes mounts the trigger and tracking handlers on srv.
func (a *App) RegisterRoutes(srv *server.Server) {
	syncHdl := reconcilehandler.NewSyncHandler(a.Orchestrator, a.cfg.Sync.TriggerToken)
	trackingHdl := trackinghandler.NewTrackingHandler(a.Tracking, a.Registry)

	srv.App.Get("/sync/courier-status", syncHdl.RunSync)
	srv.App.Post("/sync/courier-status", syncHdl.RunSync)
	srv.App.Get("/sync/courier-status/last", syncHdl.GetLastRun)
	srv.App.Get("/tenants/:tenantId/tracking/:consignmentId", trackingHdl.GetConsignmentStatus)
}

// Close stops the periodic runner and releases the backing connections.
func (a *App) Close() {
	a.Periodic.Stop()
	closeAll(a.closers)
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Get().Warn("Failed to close connection", zap.Error(err))
		}
	}
}

var _ Store = (*reconcileadapters.PostgresStore)(nil)