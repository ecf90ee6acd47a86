package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// SteadfastProviderID is the key tenants use for Steadfast.
const SteadfastProviderID = "steadfast"

// Steadfast credential keys.
const (
	SteadfastAPIKey    = "api_key"
	SteadfastSecretKey = "secret_key"
)

var steadfastStatuses = map[string]domain.DeliveryStatus{
	"pending":                            domain.DeliveryStatusPending,
	"in_review":                          domain.DeliveryStatusPending,
	"hold":                               domain.DeliveryStatusInTransit,
	"delivered_approval_pending":         domain.DeliveryStatusDelivered,
	"partial_delivered_approval_pending": domain.DeliveryStatusDelivered,
	"delivered":                          domain.DeliveryStatusDelivered,
	"partial_delivered":                  domain.DeliveryStatusDelivered,
	"cancelled_approval_pending":         domain.DeliveryStatusCancelled,
	"cancelled":                          domain.DeliveryStatusCancelled,
	"unknown_approval_pending":           domain.DeliveryStatusUnknown,
	"unknown":                            domain.DeliveryStatusUnknown,
}

// SteadfastAdapter tracks Steadfast consignments over its REST API.
type SteadfastAdapter struct {
	rest   restClient
	logger *zap.Logger
}

// NewSteadfastAdapter creates a new SteadfastAdapter.
func NewSteadfastAdapter(baseURL string, timeout time.Duration, ratePerSecond float64) *SteadfastAdapter {
	return &SteadfastAdapter{
		rest:   newRESTClient(SteadfastProviderID, baseURL, timeout, ratePerSecond),
		logger: logger.Named(SteadfastProviderID),
	}
}

type steadfastResponse struct {
	Status         int    `json:"status"`
	DeliveryStatus string `json:"delivery_status"`
	Message        string `json:"message"`
}

// ProviderID implements ports.TrackingProvider.
func (a *SteadfastAdapter) ProviderID() string { return SteadfastProviderID }

// ConsignmentFormat implements ports.TrackingProvider.
func (a *SteadfastAdapter) ConsignmentFormat() domain.ConsignmentFormat {
	return domain.ConsignmentFormatPlain
}

// FetchStatus queries the status of one consignment.
func (a *SteadfastAdapter) FetchStatus(ctx context.Context, cfg domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, a.rest.fail(0, errEmptyConsignment)
	}
	creds, err := a.rest.requireCredentials(cfg, SteadfastAPIKey, SteadfastSecretKey)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/status_by_cid/%s", a.rest.baseURL, url.PathEscape(consignmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, a.rest.fail(0, err)
	}
	req.Header.Set("Api-Key", creds[SteadfastAPIKey])
	req.Header.Set("Secret-Key", creds[SteadfastSecretKey])

	var resp steadfastResponse
	body, err := a.rest.doJSON(ctx, req, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != 0 && resp.Status != http.StatusOK {
		return nil, a.rest.fail(resp.Status, fmt.Errorf("courier error: %s", resp.Message))
	}
	if resp.DeliveryStatus == "" {
		return nil, a.rest.fail(0, fmt.Errorf("missing delivery_status"))
	}

	return &domain.StatusResult{
		ConsignmentID:  consignmentID,
		Status:         a.mapStatus(resp.DeliveryStatus),
		ProviderStatus: resp.DeliveryStatus,
		Raw:            json.RawMessage(body),
	}, nil
}

func (a *SteadfastAdapter) mapStatus(token string) domain.DeliveryStatus {
	status, ok := steadfastStatuses[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		a.logger.Warn("Unknown Steadfast status encountered", zap.String("status", token))
		return domain.DeliveryStatusUnknown
	}
	return status
}
