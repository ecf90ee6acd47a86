package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier-sync/internal/core/httpclient"
	"courier-sync/internal/features/tracking/domain"

	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a courier response is read.
const maxBodyBytes = 1 << 20

// restClient is the HTTP plumbing shared by the REST couriers.
type restClient struct {
	provider string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
}

func newRESTClient(provider, baseURL string, timeout time.Duration, ratePerSecond float64) restClient {
	return restClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   httpclient.NewClient(provider, timeout),
		limiter:  newLimiter(ratePerSecond),
	}
}

// newLimiter returns a token bucket allowing ratePerSecond calls. Non-positive means unlimited.
func newLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), burst)
}

// do waits for the limiter, sends req and returns the body of a 2xx answer.
func (c restClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(0, fmt.Errorf("rate limiter: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, c.fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(resp.StatusCode, fmt.Errorf("unexpected response: %s", snippet(body)))
	}
	return body, nil
}

// doJSON is do followed by decoding into out.
func (c restClient) doJSON(ctx context.Context, req *http.Request, out any) ([]byte, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, c.fail(0, fmt.Errorf("failed to parse courier response: %w", err))
	}
	return body, nil
}

func (c restClient) fail(statusCode int, err error) error {
	return domain.NewProviderError(c.provider, statusCode, err)
}

func (c restClient) missing(keys ...string) error {
	return c.fail(0, fmt.Errorf("%w: %s", domain.ErrMissingCredentials, strings.Join(keys, ", ")))
}

// requireCredentials returns the trimmed values of keys or a missing credentials error.
func (c restClient) requireCredentials(cfg domain.ProviderConfig, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var absent []string
	for _, k := range keys {
		v := cfg.Credential(k)
		if v == "" {
			absent = append(absent, k)
			continue
		}
		values[k] = v
	}
	if len(absent) > 0 {
		return nil, c.missing(absent...)
	}
	return values, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

// errEmptyConsignment is returned when an adapter is asked for a blank consignment.
var errEmptyConsignment = errors.New("consignment id is empty")
