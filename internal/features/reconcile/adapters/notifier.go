package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"courier-sync/internal/core/cache"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/reconcile/domain"

	"go.uber.org/zap"
)

// OrdersChannel returns the pub/sub channel carrying a tenant's order events.
func OrdersChannel(tenantID string) string {
	return "tenant:" + tenantID + ":orders"
}

// RedisNotifier implements ports.Notifier with Redis PUBLISH.
type RedisNotifier struct {
	publisher cache.Publisher
}

// NewRedisNotifier creates a new RedisNotifier.
func NewRedisNotifier(p cache.Publisher) *RedisNotifier {
	return &RedisNotifier{publisher: p}
}

// Publish sends the event on the tenant's channel only.
func (n *RedisNotifier) Publish(ctx context.Context, tenantID string, event domain.OrderChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	channel := OrdersChannel(tenantID)
	receivers, err := n.publisher.Publish(ctx, channel, payload)
	if err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	logger.Named("notifier").Debug("Order event published",
		zap.String("channel", channel),
		zap.String("order_id", event.Order.ID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// LogNotifier implements ports.Notifier by logging events. Used when Redis is not configured.
type LogNotifier struct{}

// Publish logs the event.
func (LogNotifier) Publish(_ context.Context, tenantID string, event domain.OrderChangedEvent) error {
	fields := []zap.Field{
		zap.String("channel", OrdersChannel(tenantID)),
		zap.String("order_id", event.Order.ID),
		zap.String("order_status", string(event.Order.Status)),
	}
	if event.Order.Courier != nil {
		fields = append(fields, zap.String("delivery_status", string(event.Order.Courier.DeliveryStatus)))
	}
	logger.Named("notifier").Info("Order event", fields...)
	return nil
}
