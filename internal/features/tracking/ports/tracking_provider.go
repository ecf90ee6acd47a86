package ports

import (
	"context"

	"courier-sync/internal/features/tracking/domain"
)

// TrackingProvider defines the interface for courier status adapters.
type TrackingProvider interface {
	// ProviderID returns the key tenants use to configure this courier.
	ProviderID() string
	// ConsignmentFormat declares the consignment identifier shape the courier expects.
	ConsignmentFormat() domain.ConsignmentFormat
	// FetchStatus retrieves the current normalized status of one consignment.
	FetchStatus(ctx context.Context, cfg domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error)
}

// ConfigSource resolves a tenant's configuration for one provider.
type ConfigSource interface {
	// ProviderConfig returns the enabled config or domain.ErrProviderNotConfigured.
	ProviderConfig(ctx context.Context, tenantID, providerID string) (*domain.ProviderConfig, error)
}
