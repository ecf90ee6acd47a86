package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newWorkerFixture(t *testing.T, providers ...*fakeProvider) (*Worker, *faultyStore, *recordingNotifier) {
	t.Helper()
	store := newFaultyStore()
	store.AddTenant(domain.Tenant{ID: "T", Active: true})
	notifier := newRecordingNotifier()

	w := NewWorker(newFetcher(providers...), store, notifier)
	w.now = func() time.Time { return fixedNow }
	return w, store, notifier
}

func TestWorker_Reconcile_Updated(t *testing.T) {
	provider := statusProvider("P", trackingdomain.DeliveryStatusDelivered)
	w, store, notifier := newWorkerFixture(t, provider)
	order := shippedOrder("T", "O", "P", "C123", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

	assert.Equal(t, domain.OutcomeUpdated, res.Outcome)
	got, _ := store.Order("T", "O")
	assert.Equal(t, domain.OrderStatusDelivered, got.Status)
	assert.Equal(t, trackingdomain.DeliveryStatusDelivered, got.Courier.DeliveryStatus)
	require.NotNil(t, got.Courier.LastSyncedAt)
	assert.Equal(t, fixedNow, *got.Courier.LastSyncedAt)
	require.NotNil(t, got.Courier.LastAttemptedAt)
	assert.Equal(t, fixedNow, *got.Courier.LastAttemptedAt)
	assert.JSONEq(t, `{"status":"delivered"}`, string(got.Courier.RawResponse))

	events := notifier.on("T")
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCourierStatusChanged, events[0].Type)
	assert.Equal(t, "O", events[0].Order.ID)
	assert.Equal(t, domain.OrderStatusDelivered, events[0].Order.Status)
}

func TestWorker_Reconcile_Unchanged(t *testing.T) {
	provider := statusProvider("P", "IN_TRANSIT")
	w, store, notifier := newWorkerFixture(t, provider)
	order := shippedOrder("T", "O", "P", "C123", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

	assert.Equal(t, domain.OutcomeUnchanged, res.Outcome)
	got, _ := store.Order("T", "O")
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
	assert.Equal(t, trackingdomain.DeliveryStatusInTransit, got.Courier.DeliveryStatus)
	assert.Nil(t, got.Courier.RawResponse)
	require.NotNil(t, got.Courier.LastSyncedAt)
	assert.Equal(t, fixedNow, *got.Courier.LastSyncedAt)
	assert.Zero(t, notifier.total())
}

func TestWorker_Reconcile_Idempotent(t *testing.T) {
	provider := statusProvider("P", trackingdomain.DeliveryStatusOutForDelivery)
	w, store, notifier := newWorkerFixture(t, provider)
	order := shippedOrder("T", "O", "P", "C123", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)
	providers := []trackingdomain.ProviderConfig{enabled("P")}

	first := w.Reconcile(context.Background(), "T", order, providers)
	afterFirst, _ := store.Order("T", "O")
	second := w.Reconcile(context.Background(), "T", afterFirst, providers)
	afterSecond, _ := store.Order("T", "O")

	assert.Equal(t, domain.OutcomeUpdated, first.Outcome)
	assert.Equal(t, domain.OutcomeUnchanged, second.Outcome)
	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, afterFirst.Courier.DeliveryStatus, afterSecond.Courier.DeliveryStatus)
	assert.Equal(t, 1, notifier.total())
}

func TestWorker_Reconcile_LifecycleMapping(t *testing.T) {
	tests := []struct {
		status    trackingdomain.DeliveryStatus
		wantOrder domain.OrderStatus
	}{
		{trackingdomain.DeliveryStatusPending, domain.OrderStatusShipped},
		{trackingdomain.DeliveryStatusOutForDelivery, domain.OrderStatusShipped},
		{trackingdomain.DeliveryStatusReturned, domain.OrderStatusShipped},
		{trackingdomain.DeliveryStatusCancelled, domain.OrderStatusShipped},
		{trackingdomain.DeliveryStatusUnknown, domain.OrderStatusShipped},
		{trackingdomain.DeliveryStatusDelivered, domain.OrderStatusDelivered},
		{"Delivered", domain.OrderStatusDelivered},
		{"DELIVERED", domain.OrderStatusDelivered},
		{"dElIvErEd", domain.OrderStatusDelivered},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			w, store, _ := newWorkerFixture(t, statusProvider("P", tt.status))
			order := shippedOrder("T", "O", "P", "C1", trackingdomain.DeliveryStatusInTransit)
			store.PutOrder(order)

			res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

			assert.Equal(t, domain.OutcomeUpdated, res.Outcome)
			got, _ := store.Order("T", "O")
			assert.Equal(t, tt.wantOrder, got.Status)
		})
	}
}

func TestWorker_Reconcile_ProviderNotEnabled(t *testing.T) {
	provider := statusProvider("P", trackingdomain.DeliveryStatusDelivered)
	w, store, _ := newWorkerFixture(t, provider)
	order := shippedOrder("T", "O", "P", "C1", "")
	store.PutOrder(order)

	disabled := enabled("P")
	disabled.Enabled = false
	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{disabled, enabled("Q")})

	assert.Equal(t, domain.OutcomeSkipped, res.Outcome)
	assert.Contains(t, res.Reason, "not enabled")
	assert.Zero(t, provider.calls.Load())
	assertAttemptedOnly(t, store, "O")
}

func TestWorker_Reconcile_NoAdapter(t *testing.T) {
	w, store, _ := newWorkerFixture(t)
	order := shippedOrder("T", "O", "redx", "C1", "")
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("redx")})

	assert.Equal(t, domain.OutcomeSkipped, res.Outcome)
	assert.Contains(t, res.Reason, "no adapter")
	assertAttemptedOnly(t, store, "O")
}

func TestWorker_Reconcile_ProviderIDCase(t *testing.T) {
	provider := statusProvider("steadfast", trackingdomain.DeliveryStatusDelivered)
	w, store, _ := newWorkerFixture(t, provider)
	order := shippedOrder("T", "O", "steadfast", "C1", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("Steadfast")})

	assert.Equal(t, domain.OutcomeUpdated, res.Outcome)
	assert.Equal(t, int32(1), provider.calls.Load())
	got, _ := store.Order("T", "O")
	assert.Equal(t, domain.OrderStatusDelivered, got.Status)
}

func TestWorker_Reconcile_CompositeConsignmentID(t *testing.T) {
	provider := statusProvider("paperfly", trackingdomain.DeliveryStatusInTransit)
	provider.format = trackingdomain.ConsignmentFormatOrderPhone
	w, store, _ := newWorkerFixture(t, provider)

	order := shippedOrder("T", "ORD-1", "paperfly", "PF-778", trackingdomain.DeliveryStatusPending)
	order.Customer.Phone = " 01711000000 "
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("paperfly")})

	assert.Equal(t, domain.OutcomeUpdated, res.Outcome)
	assert.Equal(t, []string{"ORD-1|01711000000"}, provider.seen)
	got, _ := store.Order("T", "ORD-1")
	assert.Equal(t, "ORD-1|01711000000", got.Courier.ConsignmentID)
}

func TestWorker_Reconcile_CompositeAlreadyPresent(t *testing.T) {
	provider := statusProvider("paperfly", trackingdomain.DeliveryStatusPending)
	provider.format = trackingdomain.ConsignmentFormatOrderPhone
	w, store, _ := newWorkerFixture(t, provider)

	order := shippedOrder("T", "ORD-1", "paperfly", "ORD-1|01999", trackingdomain.DeliveryStatusPending)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("paperfly")})

	assert.Equal(t, domain.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, []string{"ORD-1|01999"}, provider.seen)
}

func TestWorker_Reconcile_MissingPhone(t *testing.T) {
	provider := statusProvider("paperfly", trackingdomain.DeliveryStatusDelivered)
	provider.format = trackingdomain.ConsignmentFormatOrderPhone
	w, store, _ := newWorkerFixture(t, provider)

	order := shippedOrder("T", "ORD-1", "paperfly", "PF-778", "")
	order.Customer.Phone = ""
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("paperfly")})

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrMissingPhoneForProvider)
	assert.Zero(t, provider.calls.Load())
	assertAttemptedOnly(t, store, "ORD-1")
}

func TestWorker_Reconcile_ProviderFailure(t *testing.T) {
	w, store, notifier := newWorkerFixture(t, failingProvider("P"))
	order := shippedOrder("T", "O", "P", "C1", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	var pe *trackingdomain.ProviderError
	assert.ErrorAs(t, res.Err, &pe)
	assertAttemptedOnly(t, store, "O")
	assert.Zero(t, notifier.total())
}

func TestWorker_Reconcile_PersistenceFailure(t *testing.T) {
	w, store, notifier := newWorkerFixture(t, statusProvider("P", trackingdomain.DeliveryStatusDelivered))
	order := shippedOrder("T", "O", "P", "C1", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)
	store.failUpdates["O"] = errors.New("write conflict")

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "write conflict")
	assert.Zero(t, notifier.total())
}

func TestWorker_Reconcile_NotifyFailureStillUpdated(t *testing.T) {
	w, store, notifier := newWorkerFixture(t, statusProvider("P", trackingdomain.DeliveryStatusDelivered))
	notifier.err = errors.New("redis down")
	order := shippedOrder("T", "O", "P", "C1", trackingdomain.DeliveryStatusInTransit)
	store.PutOrder(order)

	res := w.Reconcile(context.Background(), "T", order, []trackingdomain.ProviderConfig{enabled("P")})

	assert.Equal(t, domain.OutcomeUpdated, res.Outcome)
	got, _ := store.Order("T", "O")
	assert.Equal(t, domain.OrderStatusDelivered, got.Status)
}

// assertAttemptedOnly checks that a skipped or failed order records the attempt but not a sync.
func assertAttemptedOnly(t *testing.T, store *faultyStore, orderID string) {
	t.Helper()
	got, ok := store.Order("T", orderID)
	require.True(t, ok)
	require.NotNil(t, got.Courier)
	assert.Nil(t, got.Courier.LastSyncedAt)
	require.NotNil(t, got.Courier.LastAttemptedAt)
	assert.Equal(t, fixedNow, *got.Courier.LastAttemptedAt)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
}
