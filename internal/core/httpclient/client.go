package httpclient

import (
	"net/http"
	"time"

	"courier-sync/internal/core/logger"

	"go.uber.org/zap"
)

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
	// Provider labels every entry with the courier the client talks to.
	Provider string
}

// RoundTrip executes the request and logs details.
// Query strings are left out of the logged URL since some couriers pass keys there.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := logger.Named("httpclient").With(
		zap.String("provider", lrt.Provider),
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
	)

	log.Debug("HTTP Request Started")

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		log.Warn("HTTP Request Failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, err
	}

	log.Debug("HTTP Request Completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware.
// The timeout is a backstop; callers bound each call with a context deadline too.
func NewClient(provider string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied:  http.DefaultTransport,
			Provider: provider,
		},
		Timeout: timeout,
	}
}
