package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// PaperflyProviderID is the key tenants use for Paperfly.
const PaperflyProviderID = "paperfly"

// Paperfly credential keys.
const (
	PaperflyUsername = "username"
	PaperflyPassword = "password"
	PaperflyKey      = "paperfly_key"
)

// PaperflyAdapter tracks Paperfly parcels by merchant reference and customer phone.
type PaperflyAdapter struct {
	rest   restClient
	logger *zap.Logger
}

// NewPaperflyAdapter creates a new PaperflyAdapter.
func NewPaperflyAdapter(baseURL string, timeout time.Duration, ratePerSecond float64) *PaperflyAdapter {
	return &PaperflyAdapter{
		rest:   newRESTClient(PaperflyProviderID, baseURL, timeout, ratePerSecond),
		logger: logger.Named(PaperflyProviderID),
	}
}

type paperflyRequest struct {
	ReferenceNumber string `json:"ReferenceNumber"`
	CustomerPhone   string `json:"CustomerPhone"`
}

// paperflyMilestones holds the time each stage was reached; empty means not reached.
type paperflyMilestones struct {
	Pick              string `json:"Pick"`
	InTransit         string `json:"inTransit"`
	ReceivedAtPoint   string `json:"ReceivedAtPoint"`
	PickedForDelivery string `json:"PickedForDelivery"`
	Delivered         string `json:"Delivered"`
	Partial           string `json:"Partial"`
	Returned          string `json:"Returned"`
	Close             string `json:"close"`
}

type paperflyResponse struct {
	Success *struct {
		TrackingStatus []paperflyMilestones `json:"trackingStatus"`
	} `json:"success"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ProviderID implements ports.TrackingProvider.
func (a *PaperflyAdapter) ProviderID() string { return PaperflyProviderID }

// ConsignmentFormat implements ports.TrackingProvider.
func (a *PaperflyAdapter) ConsignmentFormat() domain.ConsignmentFormat {
	return domain.ConsignmentFormatOrderPhone
}

// FetchStatus tracks the parcel identified by "<orderID>|<phone>".
func (a *PaperflyAdapter) FetchStatus(ctx context.Context, cfg domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error) {
	orderID, phone, ok := domain.SplitConsignmentID(consignmentID)
	if !ok || orderID == "" || phone == "" {
		return nil, a.rest.fail(0, fmt.Errorf("consignment id %q is not <order>%s<phone>", consignmentID, domain.CompositeSeparator))
	}
	creds, err := a.rest.requireCredentials(cfg, PaperflyUsername, PaperflyPassword, PaperflyKey)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(paperflyRequest{ReferenceNumber: orderID, CustomerPhone: phone})
	if err != nil {
		return nil, a.rest.fail(0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rest.baseURL+"/API-Order-Tracking", bytes.NewReader(payload))
	if err != nil {
		return nil, a.rest.fail(0, err)
	}
	req.SetBasicAuth(creds[PaperflyUsername], creds[PaperflyPassword])
	req.Header.Set("paperflykey", creds[PaperflyKey])
	req.Header.Set("Content-Type", "application/json")

	var resp paperflyResponse
	body, err := a.rest.doJSON(ctx, req, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, a.rest.fail(0, fmt.Errorf("courier error: %s", resp.Error.Message))
	}
	if resp.Success == nil || len(resp.Success.TrackingStatus) == 0 {
		return nil, a.rest.fail(0, errors.New("no tracking status in response"))
	}

	status, token := a.mapMilestones(resp.Success.TrackingStatus[0])
	a.logger.Debug("Paperfly stage resolved", zap.String("reference", orderID), zap.String("stage", token))
	return &domain.StatusResult{
		ConsignmentID:  domain.ComposeConsignmentID(orderID, phone),
		Status:         status,
		ProviderStatus: token,
		Raw:            json.RawMessage(body),
	}, nil
}

// mapMilestones picks the furthest stage reached.
func (a *PaperflyAdapter) mapMilestones(m paperflyMilestones) (domain.DeliveryStatus, string) {
	reached := func(v string) bool { return strings.TrimSpace(v) != "" }

	switch {
	case reached(m.Returned):
		return domain.DeliveryStatusReturned, "Returned"
	case reached(m.Delivered):
		return domain.DeliveryStatusDelivered, "Delivered"
	case reached(m.Partial):
		return domain.DeliveryStatusDelivered, "Partial"
	case reached(m.Close):
		return domain.DeliveryStatusCancelled, "close"
	case reached(m.PickedForDelivery):
		return domain.DeliveryStatusOutForDelivery, "PickedForDelivery"
	case reached(m.ReceivedAtPoint):
		return domain.DeliveryStatusInTransit, "ReceivedAtPoint"
	case reached(m.InTransit):
		return domain.DeliveryStatusInTransit, "inTransit"
	case reached(m.Pick):
		return domain.DeliveryStatusInTransit, "Pick"
	default:
		return domain.DeliveryStatusPending, "Pending"
	}
}
