package domain

import (
	"time"

	trackingdomain "courier-sync/internal/features/tracking/domain"
)

// MaxSampleErrors caps the error messages kept by an ErrorSample.
const MaxSampleErrors = 10

// Outcome is the result of reconciling one order.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// WorkerResult is what the worker reports for one order.
type WorkerResult struct {
	OrderID string
	Outcome Outcome
	// Reason is set for Skipped and Failed outcomes.
	Reason string
	// Err is set for Failed outcomes.
	Err error
}

// ErrorSample counts every error but keeps only the first MaxSampleErrors messages.
type ErrorSample struct {
	count int
	items []string
}

// Add records one error message.
func (s *ErrorSample) Add(msg string) {
	s.count++
	if len(s.items) < MaxSampleErrors {
		s.items = append(s.items, msg)
	}
}

// Merge folds other into s.
func (s *ErrorSample) Merge(other ErrorSample) {
	s.count += other.count
	for _, msg := range other.items {
		if len(s.items) >= MaxSampleErrors {
			break
		}
		s.items = append(s.items, msg)
	}
}

// Count returns how many errors were recorded.
func (s ErrorSample) Count() int { return s.count }

// Items returns a copy of the kept messages.
func (s ErrorSample) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// TenantProviders is one enumerated tenant and its enabled couriers.
type TenantProviders struct {
	TenantID  string
	Providers []trackingdomain.ProviderConfig
	// Err is set when the tenant's courier configuration could not be read.
	Err error
}

// TenantRunResult holds the counters of one tenant in one run.
type TenantRunResult struct {
	TenantID      string
	OrdersScanned int
	Updated       int
	Unchanged     int
	Skipped       int
	Failed        int
	Errors        ErrorSample
}

// Record folds one worker result into the counters.
func (r *TenantRunResult) Record(res WorkerResult) {
	switch res.Outcome {
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
		msg := res.Reason
		if res.Err != nil {
			msg = res.Err.Error()
		}
		r.Errors.Add("tenant=" + r.TenantID + " order=" + res.OrderID + ": " + msg)
	}
}

// RunResult is the aggregate report of one run.
type RunResult struct {
	RunID            string    `json:"run_id"`
	TenantsScanned   int       `json:"tenants_scanned"`
	TenantsSkipped   int       `json:"tenants_skipped"`
	TenantsFailed    int       `json:"tenants_failed"`
	OrdersScanned    int       `json:"orders_scanned"`
	Updated          int       `json:"updated"`
	Unchanged        int       `json:"unchanged"`
	Skipped          int       `json:"skipped"`
	Failed           int       `json:"failed"`
	ErrorSampleCount int       `json:"error_sample_count"`
	SampleErrors     []string  `json:"sample_errors"`
	StartedAt        time.Time `json:"started_at"`
	Timestamp        time.Time `json:"timestamp"`
	DurationMS       int64     `json:"duration_ms"`

	errors ErrorSample
}

// NewRunResult starts an empty report.
func NewRunResult(runID string, startedAt time.Time) *RunResult {
	return &RunResult{
		RunID:        runID,
		StartedAt:    startedAt,
		SampleErrors: []string{},
	}
}

// AddTenant merges one tenant's counters.
func (r *RunResult) AddTenant(t TenantRunResult) {
	r.OrdersScanned += t.OrdersScanned
	r.Updated += t.Updated
	r.Unchanged += t.Unchanged
	r.Skipped += t.Skipped
	r.Failed += t.Failed
	r.errors.Merge(t.Errors)
	r.syncErrors()
}

// AddTenantError records a tenant-scoped failure.
func (r *RunResult) AddTenantError(tenantID string, err error) {
	r.TenantsFailed++
	r.errors.Add("tenant=" + tenantID + ": " + err.Error())
	r.syncErrors()
}

// Finish stamps the completion time.
func (r *RunResult) Finish(at time.Time) {
	r.Timestamp = at
	r.DurationMS = at.Sub(r.StartedAt).Milliseconds()
}

func (r *RunResult) syncErrors() {
	r.ErrorSampleCount = r.errors.Count()
	r.SampleErrors = r.errors.Items()
}

// RunOptions are the per-trigger overrides. Zero values fall back to configuration.
type RunOptions struct {
	TenantID    string
	BatchSize   int
	Concurrency int
}
