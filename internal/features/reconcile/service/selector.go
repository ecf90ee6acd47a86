package service

import (
	"context"

	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"
)

// OrderSelector picks the orders worth reconciling for a tenant.
type OrderSelector struct {
	store ports.OrderStore
}

// NewOrderSelector creates a new OrderSelector.
func NewOrderSelector(store ports.OrderStore) *OrderSelector {
	return &OrderSelector{store: store}
}

// SelectEligibleOrders returns at most limit non-terminal orders with a consignment.
// The predicate is re-applied in memory so no store can leak a terminal order.
func (s *OrderSelector) SelectEligibleOrders(ctx context.Context, tenantID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		return nil, nil
	}
	candidates, err := s.store.FindEligibleOrders(ctx, tenantID, domain.TerminalStatuses, limit)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(candidates))
	for _, o := range candidates {
		if !o.IsEligible() {
			continue
		}
		o.TenantID = tenantID
		orders = append(orders, o)
		if len(orders) == limit {
			break
		}
	}
	return orders, nil
}
