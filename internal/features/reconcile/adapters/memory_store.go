package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"
)

// MemoryStore is an in-process ports.TenantStore and ports.OrderStore used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	tenants  map[string]domain.Tenant
	services map[string][]trackingdomain.ProviderConfig
	orders   map[string]map[string]domain.Order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[string]domain.Tenant),
		services: make(map[string][]trackingdomain.ProviderConfig),
		orders:   make(map[string]map[string]domain.Order),
	}
}

// AddTenant registers a tenant with its courier configs.
func (s *MemoryStore) AddTenant(t domain.Tenant, services ...trackingdomain.ProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	s.services[t.ID] = append([]trackingdomain.ProviderConfig(nil), services...)
	if _, ok := s.orders[t.ID]; !ok {
		s.orders[t.ID] = make(map[string]domain.Order)
	}
}

// PutOrder stores an order under its tenant.
func (s *MemoryStore) PutOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.TenantID]; !ok {
		s.orders[o.TenantID] = make(map[string]domain.Order)
	}
	s.orders[o.TenantID][o.ID] = cloneOrder(o)
}

// Order returns a copy of a stored order.
func (s *MemoryStore) Order(tenantID, orderID string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[tenantID][orderID]
	return cloneOrder(o), ok
}

// ListTenants implements ports.TenantStore.
func (s *MemoryStore) ListTenants(_ context.Context) ([]domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Tenant
	for _, t := range s.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetTenant implements ports.TenantStore.
func (s *MemoryStore) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok || !t.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, tenantID)
	}
	return &t, nil
}

// ListCourierServices implements ports.TenantStore.
func (s *MemoryStore) ListCourierServices(_ context.Context, tenantID string) ([]trackingdomain.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]trackingdomain.ProviderConfig(nil), s.services[tenantID]...), nil
}

// FindEligibleOrders implements ports.OrderStore with the same predicate and ordering as the
// Postgres store: trimmed non-empty consignment and provider, status compared case-insensitively,
// least recently attempted first.
func (s *MemoryStore) FindEligibleOrders(_ context.Context, tenantID string, excluded []domain.OrderStatus, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := make(map[string]bool, len(excluded))
	for _, st := range excluded {
		skip[normalizeStatus(string(st))] = true
	}

	var out []domain.Order
	for _, o := range s.orders[tenantID] {
		if o.Courier == nil ||
			strings.TrimSpace(o.Courier.ConsignmentID) == "" ||
			strings.TrimSpace(o.Courier.ProviderID) == "" ||
			skip[normalizeStatus(string(o.Status))] {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := lastTouched(out[i]), lastTouched(out[j])
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		return a.Before(b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateCourierInfo implements ports.OrderStore.
func (s *MemoryStore) UpdateCourierInfo(_ context.Context, tenantID, orderID string, update domain.CourierUpdate) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[tenantID][orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrOrderNotFound, tenantID, orderID)
	}
	updated := update.Apply(o)
	s.orders[tenantID][orderID] = updated
	out := cloneOrder(updated)
	return &out, nil
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// lastTouched is the attempt time, else the sync time. Untouched orders sort first.
func lastTouched(o domain.Order) time.Time {
	switch {
	case o.Courier == nil:
		return time.Time{}
	case o.Courier.LastAttemptedAt != nil:
		return *o.Courier.LastAttemptedAt
	case o.Courier.LastSyncedAt != nil:
		return *o.Courier.LastSyncedAt
	}
	return time.Time{}
}

func cloneOrder(o domain.Order) domain.Order {
	if o.Courier != nil {
		c := *o.Courier
		if c.LastSyncedAt != nil {
			ts := *c.LastSyncedAt
			c.LastSyncedAt = &ts
		}
		if c.LastAttemptedAt != nil {
			ts := *c.LastAttemptedAt
			c.LastAttemptedAt = &ts
		}
		o.Courier = &c
	}
	return o
}
