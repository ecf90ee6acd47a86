package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSample_Bounded(t *testing.T) {
	var s ErrorSample
	for i := 0; i < 1000; i++ {
		s.Add(fmt.Sprintf("error %d", i))
	}

	assert.Equal(t, 1000, s.Count())
	items := s.Items()
	require.Len(t, items, MaxSampleErrors)
	assert.Equal(t, "error 0", items[0])

	var merged ErrorSample
	merged.Add("first")
	merged.Merge(s)
	assert.Equal(t, 1001, merged.Count())
	assert.Len(t, merged.Items(), MaxSampleErrors)
	assert.Equal(t, "first", merged.Items()[0])
}

func TestTenantRunResult_Record(t *testing.T) {
	r := TenantRunResult{TenantID: "T"}

	r.Record(WorkerResult{OrderID: "1", Outcome: OutcomeUpdated})
	r.Record(WorkerResult{OrderID: "2", Outcome: OutcomeUnchanged})
	r.Record(WorkerResult{OrderID: "3", Outcome: OutcomeSkipped, Reason: "provider not enabled"})
	r.Record(WorkerResult{OrderID: "4", Outcome: OutcomeFailed, Err: errors.New("timeout")})

	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Unchanged)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, []string{"tenant=T order=4: timeout"}, r.Errors.Items())
}

func TestRunResult_Aggregation(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := NewRunResult("abcd1234", started)

	a := TenantRunResult{TenantID: "A", OrdersScanned: 3, Updated: 2}
	a.Record(WorkerResult{OrderID: "9", Outcome: OutcomeFailed, Err: errors.New("boom")})
	run.AddTenant(a)
	run.AddTenant(TenantRunResult{TenantID: "B", OrdersScanned: 1, Unchanged: 1})
	run.AddTenantError("C", errors.New("store down"))
	run.Finish(started.Add(1500 * time.Millisecond))

	assert.Equal(t, 4, run.OrdersScanned)
	assert.Equal(t, 2, run.Updated)
	assert.Equal(t, 1, run.Unchanged)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.TenantsFailed)
	assert.Equal(t, 2, run.ErrorSampleCount)
	assert.Equal(t, []string{"tenant=A order=9: boom", "tenant=C: store down"}, run.SampleErrors)
	assert.Equal(t, int64(1500), run.DurationMS)

	data, err := json.Marshal(run)
	require.NoError(t, err)
	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	for _, k := range []string{"run_id", "tenants_scanned", "tenants_skipped", "tenants_failed", "orders_scanned",
		"updated", "unchanged", "skipped", "failed", "error_sample_count", "sample_errors", "started_at", "timestamp", "duration_ms"} {
		assert.Contains(t, keys, k)
	}
	assert.Len(t, keys, 14)
}

func TestRunResult_EmptySampleIsArray(t *testing.T) {
	data, err := json.Marshal(NewRunResult("x", time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sample_errors":[]`)
}
