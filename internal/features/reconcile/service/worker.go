package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/metrics"
	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"
	trackingdomain "courier-sync/internal/features/tracking/domain"
	trackingports "courier-sync/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// StatusFetcher resolves adapters and fetches courier statuses.
// *trackingservice.TrackingService satisfies it.
type StatusFetcher interface {
	Provider(providerID string) (trackingports.TrackingProvider, error)
	FetchStatus(ctx context.Context, cfg trackingdomain.ProviderConfig, consignmentID string) (*trackingdomain.StatusResult, error)
}

// Worker reconciles a single order against its courier.
type Worker struct {
	fetcher  StatusFetcher
	store    ports.OrderStore
	notifier ports.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorker creates a new Worker.
func NewWorker(fetcher StatusFetcher, store ports.OrderStore, notifier ports.Notifier) *Worker {
	return &Worker{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		logger:   logger.Named("worker"),
		now:      time.Now,
	}
}

// Reconcile fetches the courier status of one order and persists any change.
// Errors never escape; they are reported as a Failed outcome. Every attempt on an order
// with a courier record writes its attempt time, so skipped and failing orders rotate to
// the back of the next selection.
func (w *Worker) Reconcile(ctx context.Context, tenantID string, order domain.Order, providers []trackingdomain.ProviderConfig) domain.WorkerResult {
	res, written := w.reconcile(ctx, tenantID, order, providers)
	if !written && order.Courier != nil {
		w.markAttempted(ctx, tenantID, order.ID)
	}
	return res
}

// reconcile reports whether it wrote to the store or tried to.
func (w *Worker) reconcile(ctx context.Context, tenantID string, order domain.Order, providers []trackingdomain.ProviderConfig) (domain.WorkerResult, bool) {
	res := domain.WorkerResult{OrderID: order.ID}
	if order.Courier == nil {
		return skipped(res, "order has no courier assignment"), false
	}

	cfg, ok := findProvider(providers, order.Courier.ProviderID)
	if !ok || !cfg.Enabled {
		return skipped(res, fmt.Sprintf("provider %s not enabled", order.Courier.ProviderID)), false
	}
	cfg.ProviderID = strings.TrimSpace(cfg.ProviderID)

	provider, err := w.fetcher.Provider(cfg.ProviderID)
	if err != nil {
		return skipped(res, fmt.Sprintf("no adapter for provider %s", cfg.ProviderID)), false
	}

	consignmentID, err := resolveConsignmentID(order, provider.ConsignmentFormat())
	if err != nil {
		return failed(res, err), false
	}

	result, err := w.fetcher.FetchStatus(ctx, cfg, consignmentID)
	if err != nil {
		return failed(res, err), false
	}

	syncedAt := w.now().UTC()
	current := order.Courier.DeliveryStatus
	if result.Status.Equal(current) {
		touch := domain.CourierUpdate{LastSyncedAt: syncedAt, AttemptedAt: syncedAt}
		if _, err := w.store.UpdateCourierInfo(ctx, tenantID, order.ID, touch); err != nil {
			return failed(res, fmt.Errorf("persist sync time: %w", err)), true
		}
		res.Outcome = domain.OutcomeUnchanged
		return res, true
	}

	status := trackingdomain.DeliveryStatus(strings.ToLower(strings.TrimSpace(string(result.Status))))
	update := domain.CourierUpdate{
		DeliveryStatus: &status,
		RawResponse:    result.Raw,
		LastSyncedAt:   syncedAt,
		AttemptedAt:    syncedAt,
	}
	if echoed := strings.TrimSpace(result.ConsignmentID); echoed != "" && echoed != order.Courier.ConsignmentID {
		update.ConsignmentID = &echoed
	}
	if status.IsDelivered() {
		delivered := domain.OrderStatusDelivered
		update.OrderStatus = &delivered
	}

	updated, err := w.store.UpdateCourierInfo(ctx, tenantID, order.ID, update)
	if err != nil {
		return failed(res, fmt.Errorf("persist courier status: %w", err)), true
	}
	if updated == nil {
		applied := update.Apply(order)
		updated = &applied
	}

	w.logger.Info("Delivery status changed",
		zap.String("tenant_id", tenantID),
		zap.String("order_id", order.ID),
		zap.String("provider", cfg.ProviderID),
		zap.String("from", string(current)),
		zap.String("to", string(status)),
		zap.String("provider_status", result.ProviderStatus),
	)

	event := domain.NewOrderChangedEvent(tenantID, *updated, syncedAt)
	if err := w.notifier.Publish(ctx, tenantID, event); err != nil {
		metrics.NotificationsFailedTotal.Inc()
		w.logger.Warn("Failed to publish order event",
			zap.String("tenant_id", tenantID),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	res.Outcome = domain.OutcomeUpdated
	return res, true
}

// markAttempted records an attempt that did not reach the store.
func (w *Worker) markAttempted(ctx context.Context, tenantID, orderID string) {
	update := domain.CourierUpdate{AttemptedAt: w.now().UTC()}
	if _, err := w.store.UpdateCourierInfo(ctx, tenantID, orderID, update); err != nil {
		w.logger.Warn("Failed to record reconciliation attempt",
			zap.String("tenant_id", tenantID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// resolveConsignmentID rebuilds "<orderID>|<phone>" for couriers that expect it.
func resolveConsignmentID(order domain.Order, format trackingdomain.ConsignmentFormat) (string, error) {
	id := strings.TrimSpace(order.Courier.ConsignmentID)
	if format != trackingdomain.ConsignmentFormatOrderPhone || strings.Contains(id, trackingdomain.CompositeSeparator) {
		return id, nil
	}
	phone := strings.TrimSpace(order.Customer.Phone)
	if phone == "" {
		return "", fmt.Errorf("order %s: %w", order.ID, domain.ErrMissingPhoneForProvider)
	}
	return trackingdomain.ComposeConsignmentID(order.ID, phone), nil
}

func skipped(res domain.WorkerResult, reason string) domain.WorkerResult {
	res.Outcome = domain.OutcomeSkipped
	res.Reason = reason
	return res
}

func failed(res domain.WorkerResult, err error) domain.WorkerResult {
	res.Outcome = domain.OutcomeFailed
	res.Err = err
	res.Reason = err.Error()
	return res
}

// errWorkerPanic wraps a recovered panic.
var errWorkerPanic = errors.New("worker panicked")
