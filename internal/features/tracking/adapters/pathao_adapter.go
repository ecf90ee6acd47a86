package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// PathaoProviderID is the key tenants use for Pathao.
const PathaoProviderID = "pathao"

// Pathao credential keys.
const (
	PathaoClientID     = "client_id"
	PathaoClientSecret = "client_secret"
	PathaoUsername     = "username"
	PathaoPassword     = "password"
)

// tokenExpirySkew renews a session token before the courier expires it.
const tokenExpirySkew = time.Minute

var pathaoStatuses = map[string]domain.DeliveryStatus{
	"pending":                   domain.DeliveryStatusPending,
	"pickup_requested":          domain.DeliveryStatusPending,
	"assigned_for_pickup":       domain.DeliveryStatusPending,
	"pickup_failed":             domain.DeliveryStatusPending,
	"on_hold":                   domain.DeliveryStatusPending,
	"picked":                    domain.DeliveryStatusInTransit,
	"at_the_sorting_hub":        domain.DeliveryStatusInTransit,
	"in_transit":                domain.DeliveryStatusInTransit,
	"received_at_last_mile_hub": domain.DeliveryStatusInTransit,
	"delivery_failed":           domain.DeliveryStatusInTransit,
	"assigned_for_delivery":     domain.DeliveryStatusOutForDelivery,
	"delivered":                 domain.DeliveryStatusDelivered,
	"partial_delivery":          domain.DeliveryStatusDelivered,
	"payment_invoice":           domain.DeliveryStatusDelivered,
	"return":                    domain.DeliveryStatusReturned,
	"paid_return":               domain.DeliveryStatusReturned,
	"exchange":                  domain.DeliveryStatusReturned,
	"pickup_cancelled":          domain.DeliveryStatusCancelled,
	"cancelled":                 domain.DeliveryStatusCancelled,
}

// PathaoAdapter tracks Pathao consignments. Session tokens are cached per credential set.
type PathaoAdapter struct {
	rest   restClient
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	tokens map[string]pathaoToken
}

type pathaoToken struct {
	value     string
	expiresAt time.Time
}

// NewPathaoAdapter creates a new PathaoAdapter.
func NewPathaoAdapter(baseURL string, timeout time.Duration, ratePerSecond float64) *PathaoAdapter {
	return &PathaoAdapter{
		rest:   newRESTClient(PathaoProviderID, baseURL, timeout, ratePerSecond),
		logger: logger.Named(PathaoProviderID),
		now:    time.Now,
		tokens: make(map[string]pathaoToken),
	}
}

type pathaoTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	GrantType    string `json:"grant_type"`
}

type pathaoTokenResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

type pathaoOrderResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Data    struct {
		ConsignmentID   string `json:"consignment_id"`
		MerchantOrderID string `json:"merchant_order_id"`
		OrderStatus     string `json:"order_status"`
		OrderStatusSlug string `json:"order_status_slug"`
		UpdatedAt       string `json:"updated_at"`
	} `json:"data"`
}

// ProviderID implements ports.TrackingProvider.
func (a *PathaoAdapter) ProviderID() string { return PathaoProviderID }

// ConsignmentFormat implements ports.TrackingProvider.
func (a *PathaoAdapter) ConsignmentFormat() domain.ConsignmentFormat {
	return domain.ConsignmentFormatPlain
}

// FetchStatus queries the order info of one consignment.
func (a *PathaoAdapter) FetchStatus(ctx context.Context, cfg domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, a.rest.fail(0, errEmptyConsignment)
	}
	creds, err := a.rest.requireCredentials(cfg, PathaoClientID, PathaoClientSecret, PathaoUsername, PathaoPassword)
	if err != nil {
		return nil, err
	}

	token, err := a.token(ctx, creds)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/aladdin/api/v1/orders/%s/info", a.rest.baseURL, url.PathEscape(consignmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, a.rest.fail(0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp pathaoOrderResponse
	body, err := a.rest.doJSON(ctx, req, &resp)
	if err != nil {
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized {
			a.forget(creds)
		}
		return nil, err
	}

	slug := resp.Data.OrderStatusSlug
	if slug == "" {
		slug = resp.Data.OrderStatus
	}
	if slug == "" {
		return nil, a.rest.fail(0, fmt.Errorf("missing order status: %s", resp.Message))
	}

	echoed := resp.Data.ConsignmentID
	if echoed == "" {
		echoed = consignmentID
	}

	return &domain.StatusResult{
		ConsignmentID:  echoed,
		Status:         a.mapStatus(slug),
		ProviderStatus: slug,
		Raw:            json.RawMessage(body),
	}, nil
}

func (a *PathaoAdapter) mapStatus(slug string) domain.DeliveryStatus {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(slug), " ", "_"))
	status, ok := pathaoStatuses[key]
	if !ok {
		a.logger.Warn("Unknown Pathao status encountered", zap.String("status", slug))
		return domain.DeliveryStatusUnknown
	}
	return status
}

// token returns a cached session token or issues a new one.
func (a *PathaoAdapter) token(ctx context.Context, creds map[string]string) (string, error) {
	key := pathaoCacheKey(creds)

	a.mu.Lock()
	cached, ok := a.tokens[key]
	a.mu.Unlock()
	if ok && a.now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	payload, err := json.Marshal(pathaoTokenRequest{
		ClientID:     creds[PathaoClientID],
		ClientSecret: creds[PathaoClientSecret],
		Username:     creds[PathaoUsername],
		Password:     creds[PathaoPassword],
		GrantType:    "password",
	})
	if err != nil {
		return "", a.rest.fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rest.baseURL+"/aladdin/api/v1/issue-token", bytes.NewReader(payload))
	if err != nil {
		return "", a.rest.fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp pathaoTokenResponse
	if _, err := a.rest.doJSON(ctx, req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", a.rest.fail(0, errors.New("issue-token returned no access token"))
	}

	expiresAt := a.now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenExpirySkew)
	a.mu.Lock()
	a.tokens[key] = pathaoToken{value: resp.AccessToken, expiresAt: expiresAt}
	a.mu.Unlock()

	a.logger.Debug("Issued Pathao session token", zap.Time("expires_at", expiresAt))
	return resp.AccessToken, nil
}

func (a *PathaoAdapter) forget(creds map[string]string) {
	a.mu.Lock()
	delete(a.tokens, pathaoCacheKey(creds))
	a.mu.Unlock()
}

func pathaoCacheKey(creds map[string]string) string {
	return creds[PathaoClientID] + "\x00" + creds[PathaoUsername]
}
