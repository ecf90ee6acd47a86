package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/metrics"
	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// DefaultConcurrency is the chunk size when none is configured.
const DefaultConcurrency = 5

// Reconciler reconciles one order. *Worker satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID string, order domain.Order, providers []trackingdomain.ProviderConfig) domain.WorkerResult
}

// BatchScheduler runs a tenant's orders in sequential chunks of concurrent workers.
type BatchScheduler struct {
	worker Reconciler
	pacing time.Duration
	sleep  func(time.Duration)
	logger *zap.Logger
}

// NewBatchScheduler creates a new BatchScheduler sleeping pacing between chunks.
func NewBatchScheduler(worker Reconciler, pacing time.Duration) *BatchScheduler {
	return &BatchScheduler{
		worker: worker,
		pacing: pacing,
		sleep:  time.Sleep,
		logger: logger.Named("scheduler"),
	}
}

// RunTenant reconciles orders and folds every outcome into the tenant counters as it resolves.
// Orders left when ctx is cancelled between chunks are counted as skipped.
func (s *BatchScheduler) RunTenant(ctx context.Context, tenantID string, orders []domain.Order, providers []trackingdomain.ProviderConfig, concurrency int) domain.TenantRunResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	result := domain.TenantRunResult{TenantID: tenantID, OrdersScanned: len(orders)}
	var mu sync.Mutex
	record := func(res domain.WorkerResult) {
		metrics.OrdersTotal.WithLabelValues(string(res.Outcome)).Inc()
		mu.Lock()
		result.Record(res)
		mu.Unlock()
	}

	for start := 0; start < len(orders); start += concurrency {
		if start > 0 {
			s.sleep(s.pacing)
		}
		if err := ctx.Err(); err != nil {
			remaining := len(orders) - start
			s.logger.Warn("Run cancelled, skipping remaining orders",
				zap.String("tenant_id", tenantID),
				zap.Int("remaining", remaining),
				zap.Error(err),
			)
			for _, o := range orders[start:] {
				record(domain.WorkerResult{OrderID: o.ID, Outcome: domain.OutcomeSkipped, Reason: "run cancelled"})
			}
			break
		}

		end := start + concurrency
		if end > len(orders) {
			end = len(orders)
		}

		var wg conc.WaitGroup
		for _, order := range orders[start:end] {
			order := order
			wg.Go(func() {
				record(s.reconcileSafely(ctx, tenantID, order, providers))
			})
		}
		wg.Wait()
	}

	return result
}

// reconcileSafely turns a worker panic into a Failed outcome for that order only.
func (s *BatchScheduler) reconcileSafely(ctx context.Context, tenantID string, order domain.Order, providers []trackingdomain.ProviderConfig) domain.WorkerResult {
	var res domain.WorkerResult
	recovered := panics.Try(func() {
		res = s.worker.Reconcile(ctx, tenantID, order, providers)
	})
	if recovered != nil {
		s.logger.Error("Worker panicked",
			zap.String("tenant_id", tenantID),
			zap.String("order_id", order.ID),
			zap.Any("panic", recovered.Value),
		)
		err := fmt.Errorf("%w: %v", errWorkerPanic, recovered.Value)
		return domain.WorkerResult{OrderID: order.ID, Outcome: domain.OutcomeFailed, Err: err, Reason: err.Error()}
	}
	return res
}
