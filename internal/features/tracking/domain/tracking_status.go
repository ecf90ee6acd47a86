package domain

import (
	"encoding/json"
	"strings"
)

// DeliveryStatus is the normalized delivery state shared by every courier.
type DeliveryStatus string

const (
	// DeliveryStatusPending indicates the courier registered the parcel but has not moved it.
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusInTransit indicates the parcel is moving through the courier network.
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	// DeliveryStatusOutForDelivery indicates the parcel is with the last-mile rider.
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	// DeliveryStatusDelivered indicates the parcel reached the customer.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusReturned indicates the parcel went back to the merchant.
	DeliveryStatusReturned DeliveryStatus = "returned"
	// DeliveryStatusCancelled indicates the courier cancelled the consignment.
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
	// DeliveryStatusUnknown is used when the courier status cannot be mapped.
	DeliveryStatusUnknown DeliveryStatus = "unknown"
)

// IsDelivered reports whether the status is the delivered token, ignoring case.
func (s DeliveryStatus) IsDelivered() bool {
	return strings.EqualFold(string(s), string(DeliveryStatusDelivered))
}

// Equal compares two statuses ignoring case and surrounding spaces.
func (s DeliveryStatus) Equal(other DeliveryStatus) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), strings.TrimSpace(string(other)))
}

// ConsignmentFormat describes the consignment identifier a courier expects.
type ConsignmentFormat string

const (
	// ConsignmentFormatPlain is the courier tracking code as issued.
	ConsignmentFormatPlain ConsignmentFormat = "plain"
	// ConsignmentFormatOrderPhone is "<orderID>|<customer phone>".
	ConsignmentFormatOrderPhone ConsignmentFormat = "order_phone"
)

// CompositeSeparator joins the parts of an order_phone consignment identifier.
const CompositeSeparator = "|"

// ComposeConsignmentID builds an order_phone consignment identifier.
func ComposeConsignmentID(orderID, phone string) string {
	return orderID + CompositeSeparator + phone
}

// SplitConsignmentID splits an order_phone identifier. ok is false when the separator is missing.
func SplitConsignmentID(id string) (orderID, phone string, ok bool) {
	orderID, phone, ok = strings.Cut(id, CompositeSeparator)
	return strings.TrimSpace(orderID), strings.TrimSpace(phone), ok
}

// ProviderConfig is a courier service a tenant has configured.
type ProviderConfig struct {
	// ProviderID is the adapter key (e.g., steadfast, pathao).
	ProviderID string `json:"provider_id"`
	// DisplayName is shown to tenant admins.
	DisplayName string `json:"display_name"`
	// Enabled gates the provider for reconciliation.
	Enabled bool `json:"enabled"`
	// Credentials is opaque to the engine and read only by the matching adapter.
	Credentials map[string]string `json:"-"`
}

// Credential returns a trimmed credential value.
func (c ProviderConfig) Credential(key string) string {
	return strings.TrimSpace(c.Credentials[key])
}

// StatusResult is what a courier adapter returns for one consignment.
type StatusResult struct {
	// ConsignmentID is the identifier echoed or corrected by the courier.
	ConsignmentID string `json:"consignment_id"`
	// Status is the normalized delivery status.
	Status DeliveryStatus `json:"status"`
	// ProviderStatus is the courier's own status token.
	ProviderStatus string `json:"provider_status"`
	// Raw is the courier payload kept for audit.
	Raw json.RawMessage `json:"raw,omitempty"`
}
