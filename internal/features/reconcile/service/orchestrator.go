package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"courier-sync/internal/core/config"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/metrics"
	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs one reconciliation pass across tenants. It implements ports.RunService.
type Orchestrator struct {
	registry  *CourierRegistry
	selector  *OrderSelector
	scheduler *BatchScheduler
	reports   ports.ReportRepository
	defaults  config.SyncConfig
	logger    *zap.Logger
	now       func() time.Time
	newRunID  func() string
}

// NewOrchestrator creates a new Orchestrator. defaults supplies batch size and concurrency
// when a trigger does not override them.
func NewOrchestrator(registry *CourierRegistry, selector *OrderSelector, scheduler *BatchScheduler, reports ports.ReportRepository, defaults config.SyncConfig) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		selector:  selector,
		scheduler: scheduler,
		reports:   reports,
		defaults:  defaults,
		logger:    logger.Named("orchestrator"),
		now:       time.Now,
		newRunID:  func() string { return uuid.New().String()[:8] },
	}
}

type tenantOutcome struct {
	result  domain.TenantRunResult
	skipped bool
	err     error
}

// RunOnce reconciles every eligible order of every enabled tenant, or of opts.TenantID only.
// Only a tenant enumeration failure is returned as an error.
func (o *Orchestrator) RunOnce(ctx context.Context, opts domain.RunOptions) (*domain.RunResult, error) {
	opts = o.withDefaults(opts)
	report := domain.NewRunResult(o.newRunID(), o.now().UTC())
	log := o.logger.With(zap.String("run_id", report.RunID))

	log.Info("Reconciliation run started",
		zap.String("tenant_filter", opts.TenantID),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("concurrency", opts.Concurrency),
	)

	entries, err := o.registry.ListEnabledProviders(ctx, opts.TenantID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("fatal").Inc()
		log.Error("Reconciliation run aborted", zap.Error(err))
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TenantID < entries[j].TenantID })
	report.TenantsScanned = len(entries)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(max(o.defaults.TenantConcurrency, 1))
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			outcome := o.runTenantSafely(ctx, entry, opts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.err != nil:
				metrics.TenantErrorsTotal.Inc()
				log.Warn("Tenant reconciliation failed", zap.String("tenant_id", entry.TenantID), zap.Error(outcome.err))
				report.AddTenantError(entry.TenantID, outcome.err)
			case outcome.skipped:
				report.TenantsSkipped++
			default:
				report.AddTenant(outcome.result)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Finish(o.now().UTC())
	o.record(ctx, log, report)
	return report, nil
}

// LastReport returns the latest saved run report.
func (o *Orchestrator) LastReport(ctx context.Context) (*domain.RunResult, error) {
	if o.reports == nil {
		return nil, domain.ErrReportNotFound
	}
	return o.reports.Latest(ctx)
}

func (o *Orchestrator) withDefaults(opts domain.RunOptions) domain.RunOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = o.defaults.BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = o.defaults.Concurrency
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return opts
}

// runTenantSafely keeps a panicking tenant from aborting the others.
func (o *Orchestrator) runTenantSafely(ctx context.Context, entry domain.TenantProviders, opts domain.RunOptions) tenantOutcome {
	var outcome tenantOutcome
	recovered := panics.Try(func() {
		outcome = o.runTenant(ctx, entry, opts)
	})
	if recovered != nil {
		return tenantOutcome{err: fmt.Errorf("tenant run panicked: %v", recovered.Value)}
	}
	return outcome
}

func (o *Orchestrator) runTenant(ctx context.Context, entry domain.TenantProviders, opts domain.RunOptions) tenantOutcome {
	if entry.Err != nil {
		return tenantOutcome{err: entry.Err}
	}
	if len(entry.Providers) == 0 {
		o.logger.Debug("Tenant has no enabled couriers", zap.String("tenant_id", entry.TenantID))
		return tenantOutcome{skipped: true}
	}

	orders, err := o.selector.SelectEligibleOrders(ctx, entry.TenantID, opts.BatchSize)
	if err != nil {
		return tenantOutcome{err: err}
	}
	if len(orders) == 0 {
		return tenantOutcome{skipped: true}
	}

	result := o.scheduler.RunTenant(ctx, entry.TenantID, orders, entry.Providers, opts.Concurrency)
	o.logger.Info("Tenant reconciled",
		zap.String("tenant_id", entry.TenantID),
		zap.Int("orders", result.OrdersScanned),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return tenantOutcome{result: result}
}

// record exports, saves and logs a finished run.
func (o *Orchestrator) record(ctx context.Context, log *zap.Logger, report *domain.RunResult) {
	result := "success"
	if report.Failed > 0 || report.TenantsFailed > 0 {
		result = "partial"
	}
	metrics.RunsTotal.WithLabelValues(result).Inc()
	metrics.RunDuration.Observe(float64(report.DurationMS) / 1000)

	if o.reports != nil {
		if err := o.reports.Save(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("Failed to save run report", zap.Error(err))
		}
	}

	log.Info("Reconciliation run finished",
		zap.Int("tenants_scanned", report.TenantsScanned),
		zap.Int("tenants_skipped", report.TenantsSkipped),
		zap.Int("tenants_failed", report.TenantsFailed),
		zap.Int("orders_scanned", report.OrdersScanned),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("error_sample_count", report.ErrorSampleCount),
		zap.Strings("sample_errors", report.SampleErrors),
		zap.Int64("duration_ms", report.DurationMS),
	)
}
