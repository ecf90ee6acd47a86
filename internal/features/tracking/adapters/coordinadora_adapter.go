package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier-sync/internal/core/httpclient"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/proxy"
	"courier-sync/internal/features/tracking/domain"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CoordinadoraProviderID is the key tenants use for Coordinadora.
const CoordinadoraProviderID = "coordinadora_co"

// coordinadoraTrackingXHR is the request the tracking page issues for guide details.
const coordinadoraTrackingXHR = "*/wp-json/rgc/v1/detail_tracking*"

// CoordinadoraAdapter tracks Coordinadora guides by driving the public tracking page.
type CoordinadoraAdapter struct {
	baseURL string
	proxy   proxy.Settings
	limiter *rate.Limiter
	logger  *zap.Logger
}

var coordKnownCodes = map[string]bool{
	"1": true, // Guia generada
	"2": true, // EN TERMINAL ORIGEN
	"3": true, // EN TRANSPORTE
	"4": true, // EN TERMINAL DESTINO
	"5": true, // EN REPARTO
	"6": true, // ENTREGADA
	"8": true, // CERRADO POR INCIDENCIA / RETURN
	// Incidence variations (7xx)
	"700":    true,
	"701":    true,
	"701_4":  true,
	"701_10": true,
	"728":    true,
	"733":    true,
	// Other
	"post_binded": true, // Nueva guia generada
}

// NewCoordinadoraAdapter creates a new CoordinadoraAdapter with the given page URL and proxy settings.
func NewCoordinadoraAdapter(baseURL string, proxySettings proxy.Settings, ratePerSecond float64) *CoordinadoraAdapter {
	return &CoordinadoraAdapter{
		baseURL: baseURL,
		proxy:   proxySettings,
		limiter: newLimiter(ratePerSecond),
		logger:  logger.Named(CoordinadoraProviderID),
	}
}

// coordinadoraResponse represents the JSON structure from Coordinadora API.
type coordinadoraResponse struct {
	TrackingNumber string `json:"tracking_number"`
	History        []struct {
		Code        string `json:"code"`
		Date        string `json:"date"`
		Description string `json:"description"`
	} `json:"history"`
}

// ProviderID implements ports.TrackingProvider.
func (a *CoordinadoraAdapter) ProviderID() string { return CoordinadoraProviderID }

// ConsignmentFormat implements ports.TrackingProvider.
func (a *CoordinadoraAdapter) ConsignmentFormat() domain.ConsignmentFormat {
	return domain.ConsignmentFormatPlain
}

// FetchStatus loads the tracking page in a headless browser and reads the intercepted XHR.
func (a *CoordinadoraAdapter) FetchStatus(ctx context.Context, _ domain.ProviderConfig, consignmentID string) (*domain.StatusResult, error) {
	consignmentID = strings.TrimSpace(consignmentID)
	if consignmentID == "" {
		return nil, a.fail(errEmptyConsignment)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, a.fail(fmt.Errorf("rate limiter: %w", err))
	}

	body, err := a.scrape(ctx, consignmentID)
	if err != nil {
		return nil, a.fail(err)
	}

	var resp coordinadoraResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, a.fail(fmt.Errorf("failed to parse courier response: %w", err))
	}
	if len(resp.History) == 0 {
		return nil, a.fail(errors.New("no tracking history in response"))
	}

	status, code := a.mapResponseToDomain(resp)
	echoed := resp.TrackingNumber
	if echoed == "" {
		echoed = consignmentID
	}
	return &domain.StatusResult{
		ConsignmentID:  echoed,
		Status:         status,
		ProviderStatus: code,
		Raw:            json.RawMessage(body),
	}, nil
}

func (a *CoordinadoraAdapter) pageURL(consignmentID string) string {
	guide := url.QueryEscape(consignmentID)
	switch {
	case strings.Contains(a.baseURL, "%s"):
		return fmt.Sprintf(a.baseURL, guide)
	case strings.HasSuffix(a.baseURL, "="):
		return a.baseURL + guide
	default:
		return fmt.Sprintf("%s?guia=%s", a.baseURL, guide)
	}
}

// scrape returns the raw body of the tracking XHR.
func (a *CoordinadoraAdapter) scrape(ctx context.Context, consignmentID string) ([]byte, error) {
	// An authenticated upstream is exposed to the browser through a local forwarder.
	var proxyAddr string
	if a.proxy.HasProxy() && a.proxy.HasCredentials() {
		forwarder, err := proxy.NewForwardingProxy(a.proxy.FullURL(), "coordinadora.com")
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy forwarder: %w", err)
		}
		proxyAddr, err = forwarder.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start proxy forwarder: %w", err)
		}
		defer forwarder.Stop()
	} else if a.proxy.HasProxy() {
		proxyAddr = a.proxy.HostPort()
	}

	a.logger.Debug("Launching browser...",
		zap.String("guide", consignmentID),
		zap.Bool("proxy_enabled", proxyAddr != ""),
	)

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	}
	defer l.Cleanup()

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	client, err := a.hijackClient(proxyAddr)
	if err != nil {
		return nil, err
	}

	done := make(chan []byte, 1)
	err = rod.Try(func() {
		page := browser.MustPage("")
		router := page.HijackRequests()
		router.MustAdd(coordinadoraTrackingXHR, func(h *rod.Hijack) {
			if err := h.LoadResponse(client, true); err != nil {
				a.logger.Warn("Failed to load tracking response", zap.Error(err))
				return
			}
			select {
			case done <- []byte(h.Response.Body()):
			default:
			}
		})
		go router.Run()
		defer router.MustStop()

		page.MustNavigate(a.pageURL(consignmentID))

		select {
		case <-done:
		case <-ctx.Done():
		}
	})
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("browser session failed: %w", err)
	}

	select {
	case body := <-done:
		return body, nil
	default:
		return nil, fmt.Errorf("timeout waiting for courier response: %w", ctx.Err())
	}
}

// hijackClient replays intercepted requests, through the forwarder when one is running.
func (a *CoordinadoraAdapter) hijackClient(proxyAddr string) (*http.Client, error) {
	client := httpclient.NewClient(CoordinadoraProviderID, 30*time.Second)
	if proxyAddr == "" {
		return client, nil
	}
	if !strings.Contains(proxyAddr, "://") {
		proxyAddr = "http://" + proxyAddr
	}
	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy address: %w", err)
	}
	client.Transport = &httpclient.LoggingRoundTripper{
		Proxied:  &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Provider: CoordinadoraProviderID,
	}
	return client, nil
}

// mapResponseToDomain derives the status from the latest history event.
func (a *CoordinadoraAdapter) mapResponseToDomain(resp coordinadoraResponse) (domain.DeliveryStatus, string) {
	for _, item := range resp.History {
		// 7xx codes are open-ended incidence variations.
		if !coordKnownCodes[item.Code] && !strings.HasPrefix(item.Code, "7") {
			a.logger.Warn("Unknown Coordinadora status code encountered",
				zap.String("code", item.Code),
				zap.String("description", item.Description),
			)
		}
	}

	latest := resp.History[len(resp.History)-1]
	code := strings.TrimSpace(latest.Code)
	switch {
	case code == "6":
		return domain.DeliveryStatusDelivered, code
	case code == "8":
		return domain.DeliveryStatusReturned, code
	case code == "5":
		return domain.DeliveryStatusOutForDelivery, code
	case code == "2", code == "3", code == "4", code == "post_binded":
		return domain.DeliveryStatusInTransit, code
	case strings.HasPrefix(code, "7"):
		return domain.DeliveryStatusInTransit, code
	case code == "1":
		return domain.DeliveryStatusPending, code
	default:
		return domain.DeliveryStatusUnknown, code
	}
}

func (a *CoordinadoraAdapter) fail(err error) error {
	return domain.NewProviderError(CoordinadoraProviderID, 0, err)
}
