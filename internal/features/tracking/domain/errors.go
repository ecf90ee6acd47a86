package domain

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when a provider config lacks a required credential.
var ErrMissingCredentials = errors.New("missing provider credentials")

// ProviderError is a failure talking to a courier: transport, non-2xx status,
// malformed payload, missing credentials or timeout.
type ProviderError struct {
	// Provider is the adapter key.
	Provider string
	// StatusCode is the HTTP status when the courier answered, 0 otherwise.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err unless it already is a ProviderError.
func NewProviderError(provider string, statusCode int, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, StatusCode: statusCode, Err: err}
}

// ErrProviderNotConfigured is returned when a tenant has no enabled config for a provider.
var ErrProviderNotConfigured = errors.New("provider not configured for tenant")
