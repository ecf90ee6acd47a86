package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"courier-sync/internal/features/reconcile/adapters"
	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"
	trackingports "courier-sync/internal/features/tracking/ports"
	trackingservice "courier-sync/internal/features/tracking/service"
)

// fakeProvider answers with a fixed status or error and counts calls.
type fakeProvider struct {
	id     string
	format trackingdomain.ConsignmentFormat
	fetch  func(consignmentID string) (*trackingdomain.StatusResult, error)
	calls  atomic.Int32

	mu   sync.Mutex
	seen []string
}

func (p *fakeProvider) ProviderID() string { return p.id }

func (p *fakeProvider) ConsignmentFormat() trackingdomain.ConsignmentFormat {
	if p.format == "" {
		return trackingdomain.ConsignmentFormatPlain
	}
	return p.format
}

func (p *fakeProvider) FetchStatus(_ context.Context, _ trackingdomain.ProviderConfig, consignmentID string) (*trackingdomain.StatusResult, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, consignmentID)
	p.mu.Unlock()
	return p.fetch(consignmentID)
}

func statusProvider(id string, status trackingdomain.DeliveryStatus) *fakeProvider {
	return &fakeProvider{
		id: id,
		fetch: func(cid string) (*trackingdomain.StatusResult, error) {
			return &trackingdomain.StatusResult{
				ConsignmentID:  cid,
				Status:         status,
				ProviderStatus: string(status),
				Raw:            []byte(`{"status":"` + string(status) + `"}`),
			}, nil
		},
	}
}

func failingProvider(id string) *fakeProvider {
	return &fakeProvider{
		id: id,
		fetch: func(string) (*trackingdomain.StatusResult, error) {
			return nil, errors.New("courier timeout")
		},
	}
}

func newFetcher(providers ...*fakeProvider) *trackingservice.TrackingService {
	registered := make([]trackingports.TrackingProvider, 0, len(providers))
	for _, p := range providers {
		registered = append(registered, p)
	}
	return trackingservice.NewTrackingService(registered, 0)
}

// recordingNotifier keeps published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]domain.OrderChangedEvent
	err    error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]domain.OrderChangedEvent)}
}

func (n *recordingNotifier) Publish(_ context.Context, tenantID string, event domain.OrderChangedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events[tenantID] = append(n.events[tenantID], event)
	return nil
}

func (n *recordingNotifier) on(tenantID string) []domain.OrderChangedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OrderChangedEvent(nil), n.events[tenantID]...)
}

func (n *recordingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, evs := range n.events {
		total += len(evs)
	}
	return total
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func enabled(id string) trackingdomain.ProviderConfig {
	return trackingdomain.ProviderConfig{ProviderID: id, DisplayName: id, Enabled: true}
}

func shippedOrder(tenantID, orderID, providerID, consignmentID string, status trackingdomain.DeliveryStatus) domain.Order {
	return domain.Order{
		ID:       orderID,
		TenantID: tenantID,
		Status:   domain.OrderStatusShipped,
		Customer: domain.Customer{Name: "Customer " + orderID, Phone: "01711000000"},
		Courier: &domain.CourierInfo{
			ProviderID:     providerID,
			ConsignmentID:  consignmentID,
			DeliveryStatus: status,
		},
	}
}

// faultyStore wraps a MemoryStore and fails selected reads and writes.
type faultyStore struct {
	*adapters.MemoryStore
	failTenants map[string]error
	failUpdates map[string]error
	listErr     error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		MemoryStore: adapters.NewMemoryStore(),
		failTenants: make(map[string]error),
		failUpdates: make(map[string]error),
	}
}

func (s *faultyStore) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	if s.listErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTenantStoreUnavailable, s.listErr)
	}
	return s.MemoryStore.ListTenants(ctx)
}

func (s *faultyStore) ListCourierServices(ctx context.Context, tenantID string) ([]trackingdomain.ProviderConfig, error) {
	if err := s.failTenants[tenantID]; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTenantStoreUnavailable, err)
	}
	return s.MemoryStore.ListCourierServices(ctx, tenantID)
}

func (s *faultyStore) FindEligibleOrders(ctx context.Context, tenantID string, excluded []domain.OrderStatus, limit int) ([]domain.Order, error) {
	if err := s.failTenants[tenantID]; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTenantStoreUnavailable, err)
	}
	return s.MemoryStore.FindEligibleOrders(ctx, tenantID, excluded, limit)
}

func (s *faultyStore) UpdateCourierInfo(ctx context.Context, tenantID, orderID string, update domain.CourierUpdate) (*domain.Order, error) {
	if err := s.failUpdates[orderID]; err != nil {
		return nil, err
	}
	return s.MemoryStore.UpdateCourierInfo(ctx, tenantID, orderID, update)
}
