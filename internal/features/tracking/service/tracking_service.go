package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/metrics"
	"courier-sync/internal/features/tracking/domain"
	"courier-sync/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// ErrCourierNotSupported is returned when no adapter is registered for a provider.
var ErrCourierNotSupported = errors.New("courier not supported")

// TrackingService dispatches status lookups to the adapter registered for a provider.
// Provider IDs match case-insensitively, ignoring surrounding spaces.
type TrackingService struct {
	providers map[string]ports.TrackingProvider
	timeout   time.Duration
}

// NewTrackingService creates a new TrackingService. A non-positive timeout disables the per-call bound.
func NewTrackingService(providers []ports.TrackingProvider, timeout time.Duration) *TrackingService {
	registry := make(map[string]ports.TrackingProvider, len(providers))
	for _, p := range providers {
		registry[normalizeProviderID(p.ProviderID())] = p
	}
	return &TrackingService{
		providers: registry,
		timeout:   timeout,
	}
}

// Provider returns the adapter registered under providerID.
func (s *TrackingService) Provider(providerID string) (ports.TrackingProvider, error) {
	p, ok := s.providers[normalizeProviderID(providerID)]
	if !ok {
		return nil, ErrCourierNotSupported
	}
	return p, nil
}

// Supports reports whether an adapter is registered under providerID.
func (s *TrackingService) Supports(providerID string) bool {
	_, ok := s.providers[normalizeProviderID(providerID)]
	return ok
}

// ProviderIDs lists the registered providers, sorted.
func (s *TrackingService) ProviderIDs() []string {
	ids := make([]string, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FetchStatus calls the adapter for cfg.ProviderID once, bounded by the configured timeout.
// Every adapter failure is returned as a *domain.ProviderError.
func (s *TrackingService) FetchStatus(ctx context.Context, cfg domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error) {
	provider, err := s.Provider(cfg.ProviderID)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := provider.ProviderID()
	started := time.Now()
	result, err := provider.FetchStatus(ctx, cfg, consignmentID)
	metrics.ObserveProviderCall(id, started, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		logger.Named("tracking").Debug("provider call failed",
			zap.String("provider", id),
			zap.String("consignment_id", consignmentID),
			zap.Error(err),
		)
		return nil, domain.NewProviderError(id, 0, err)
	}
	if result == nil {
		return nil, domain.NewProviderError(id, 0, errors.New("empty status result"))
	}
	return result, nil
}

// CheckConsignment resolves the tenant's config for providerID and fetches one consignment without persisting anything.
func (s *TrackingService) CheckConsignment(ctx context.Context, configs ports.ConfigSource, tenantID, providerID, consignmentID string) (*domain.StatusResult, error) {
	if !s.Supports(providerID) {
		return nil, ErrCourierNotSupported
	}
	cfg, err := configs.ProviderConfig(ctx, tenantID, providerID)
	if err != nil {
		return nil, err
	}
	return s.FetchStatus(ctx, *cfg, consignmentID)
}

func normalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
