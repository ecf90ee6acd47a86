package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPhoneForProvider is returned when a composite consignment ID cannot be rebuilt.
	ErrMissingPhoneForProvider = errors.New("missing customer phone for provider")
	// ErrTenantStoreUnavailable is wrapped by stores when tenant data cannot be read.
	ErrTenantStoreUnavailable = errors.New("tenant store unavailable")
	// ErrTenantNotFound is returned for an unknown or inactive tenant filter.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrOrderNotFound is returned when an update targets a missing order.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReportNotFound is returned when no run report has been saved yet.
	ErrReportNotFound = errors.New("run report not found")
)

// TenantEnumerationError is the only failure that aborts a run.
type TenantEnumerationError struct {
	Err error
}

func (e *TenantEnumerationError) Error() string {
	return fmt.Sprintf("tenant enumeration failed: %v", e.Err)
}

func (e *TenantEnumerationError) Unwrap() error {
	return e.Err
}
