package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"
	trackingdomain "courier-sync/internal/features/tracking/domain"
)

// CourierRegistry reads which couriers each tenant has enabled.
type CourierRegistry struct {
	store ports.TenantStore
}

// NewCourierRegistry creates a new CourierRegistry.
func NewCourierRegistry(store ports.TenantStore) *CourierRegistry {
	return &CourierRegistry{store: store}
}

// ListEnabledProviders enumerates tenants with their enabled provider configs.
// A tenantID restricts the result to that tenant. Failing to enumerate is returned as a
// *domain.TenantEnumerationError; failing to read one tenant's couriers is set on its entry.
func (r *CourierRegistry) ListEnabledProviders(ctx context.Context, tenantID string) ([]domain.TenantProviders, error) {
	var tenants []domain.Tenant
	if tenantID != "" {
		t, err := r.store.GetTenant(ctx, tenantID)
		if err != nil {
			return nil, &domain.TenantEnumerationError{Err: err}
		}
		tenants = []domain.Tenant{*t}
	} else {
		list, err := r.store.ListTenants(ctx)
		if err != nil {
			return nil, &domain.TenantEnumerationError{Err: err}
		}
		tenants = list
	}

	entries := make([]domain.TenantProviders, 0, len(tenants))
	for _, t := range tenants {
		entry := domain.TenantProviders{TenantID: t.ID}
		configs, err := r.store.ListCourierServices(ctx, t.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrTenantStoreUnavailable) {
				err = fmt.Errorf("%w: %v", domain.ErrTenantStoreUnavailable, err)
			}
			entry.Err = err
		} else {
			entry.Providers = enabledOnly(configs)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ProviderConfig returns the tenant's enabled config for providerID.
// It lets the tracking lookup resolve credentials.
func (r *CourierRegistry) ProviderConfig(ctx context.Context, tenantID, providerID string) (*trackingdomain.ProviderConfig, error) {
	if _, err := r.store.GetTenant(ctx, tenantID); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return nil, fmt.Errorf("%w: %v", trackingdomain.ErrProviderNotConfigured, err)
		}
		return nil, err
	}
	configs, err := r.store.ListCourierServices(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if cfg, ok := findProvider(enabledOnly(configs), providerID); ok {
		return &cfg, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", trackingdomain.ErrProviderNotConfigured, tenantID, providerID)
}

func enabledOnly(configs []trackingdomain.ProviderConfig) []trackingdomain.ProviderConfig {
	out := make([]trackingdomain.ProviderConfig, 0, len(configs))
	for _, c := range configs {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

func findProvider(configs []trackingdomain.ProviderConfig, providerID string) (trackingdomain.ProviderConfig, bool) {
	for _, c := range configs {
		if strings.EqualFold(strings.TrimSpace(c.ProviderID), strings.TrimSpace(providerID)) {
			return c, true
		}
	}
	return trackingdomain.ProviderConfig{}, false
}
