package domain

import (
	"encoding/json"
	"strings"
	"time"

	trackingdomain "courier-sync/internal/features/tracking/domain"
)

// OrderStatus is the lifecycle status of a tenant order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// TerminalStatuses are never selected for reconciliation.
var TerminalStatuses = []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded}

// IsTerminal reports whether the order lifecycle has ended.
func (s OrderStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if strings.EqualFold(strings.TrimSpace(string(s)), string(t)) {
			return true
		}
	}
	return false
}

// Tenant is an isolated merchant store.
type Tenant struct {
	// ID is the opaque tenant identifier.
	ID string `json:"id"`
	// Active tenants are the only ones enumerated.
	Active bool `json:"active"`
	// DatabaseRef identifies the tenant's data partition.
	DatabaseRef string `json:"database_ref,omitempty"`
}

// Customer is the order recipient.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CourierInfo is the courier sub-record of an order.
// LastAttemptedAt is set on every reconciliation attempt, including skipped and failed ones.
type CourierInfo struct {
	ProviderID      string                        `json:"provider_id"`
	ConsignmentID   string                        `json:"consignment_id"`
	DeliveryStatus  trackingdomain.DeliveryStatus `json:"delivery_status,omitempty"`
	LastSyncedAt    *time.Time                    `json:"last_synced_at,omitempty"`
	LastAttemptedAt *time.Time                    `json:"last_attempted_at,omitempty"`
	RawResponse     json.RawMessage               `json:"raw_response,omitempty"`
}

// Order is a tenant order with an optional courier assignment.
type Order struct {
	ID       string       `json:"id"`
	TenantID string       `json:"tenant_id"`
	Status   OrderStatus  `json:"status"`
	Customer Customer     `json:"customer"`
	Courier  *CourierInfo `json:"courier,omitempty"`
}

// IsEligible reports whether the order should be reconciled: a consignment and provider
// are assigned and the lifecycle has not ended.
func (o Order) IsEligible() bool {
	if o.Courier == nil {
		return false
	}
	if strings.TrimSpace(o.Courier.ConsignmentID) == "" || strings.TrimSpace(o.Courier.ProviderID) == "" {
		return false
	}
	return !o.Status.IsTerminal()
}

// CourierUpdate is a partial update of an order. Nil fields are left untouched.
type CourierUpdate struct {
	DeliveryStatus *trackingdomain.DeliveryStatus
	RawResponse    json.RawMessage
	ConsignmentID  *string
	OrderStatus    *OrderStatus
	// LastSyncedAt is written when set. Only successful provider lookups set it.
	LastSyncedAt time.Time
	// AttemptedAt is written when set.
	AttemptedAt time.Time
}

// Apply returns a copy of o with the update applied.
func (u CourierUpdate) Apply(o Order) Order {
	courier := CourierInfo{}
	if o.Courier != nil {
		courier = *o.Courier
	}
	if u.DeliveryStatus != nil {
		courier.DeliveryStatus = *u.DeliveryStatus
	}
	if u.RawResponse != nil {
		courier.RawResponse = u.RawResponse
	}
	if u.ConsignmentID != nil {
		courier.ConsignmentID = *u.ConsignmentID
	}
	if !u.LastSyncedAt.IsZero() {
		synced := u.LastSyncedAt
		courier.LastSyncedAt = &synced
	}
	if !u.AttemptedAt.IsZero() {
		attempted := u.AttemptedAt
		courier.LastAttemptedAt = &attempted
	}
	o.Courier = &courier
	if u.OrderStatus != nil {
		o.Status = *u.OrderStatus
	}
	return o
}

// EventCourierStatusChanged is the event type published when a delivery status changes.
const EventCourierStatusChanged = "order.courier_status_changed"

// OrderProjection is the part of an order sent to subscribers.
type OrderProjection struct {
	ID      string       `json:"id"`
	Status  OrderStatus  `json:"status"`
	Courier *CourierInfo `json:"courier"`
}

// OrderChangedEvent is published on the tenant channel after an update.
type OrderChangedEvent struct {
	Type       string          `json:"type"`
	TenantID   string          `json:"tenant_id"`
	Order      OrderProjection `json:"order"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewOrderChangedEvent builds the event for an updated order.
func NewOrderChangedEvent(tenantID string, o Order, at time.Time) OrderChangedEvent {
	return OrderChangedEvent{
		Type:     EventCourierStatusChanged,
		TenantID: tenantID,
		Order: OrderProjection{
			ID:      o.ID,
			Status:  o.Status,
			Courier: o.Courier,
		},
		OccurredAt: at,
	}
}
