package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"courier-sync/internal/core/cache"
	"courier-sync/internal/features/reconcile/domain"
)

const (
	lastRunCacheKey = "courier_sync:last_run"
	lastRunTTL      = 7 * 24 * time.Hour
)

// RedisReportRepository implements ports.ReportRepository using the cache adaptation.
type RedisReportRepository struct {
	cache cache.Cache
}

// NewRedisReportRepository creates a new RedisReportRepository.
func NewRedisReportRepository(c cache.Cache) *RedisReportRepository {
	return &RedisReportRepository{cache: c}
}

// Save stores the report as the latest run.
func (r *RedisReportRepository) Save(ctx context.Context, report *domain.RunResult) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := r.cache.Set(ctx, lastRunCacheKey, data, lastRunTTL); err != nil {
		return fmt.Errorf("failed to save run report to cache: %w", err)
	}
	return nil
}

// Latest retrieves the latest run report.
func (r *RedisReportRepository) Latest(ctx context.Context) (*domain.RunResult, error) {
	data, err := r.cache.Get(ctx, lastRunCacheKey)
	if errors.Is(err, cache.ErrKeyNotFound) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report from cache: %w", err)
	}

	var report domain.RunResult
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return &report, nil
}

// MemoryReportRepository keeps the latest report in process.
type MemoryReportRepository struct {
	mu     sync.RWMutex
	latest *domain.RunResult
}

// Save implements ports.ReportRepository.
func (r *MemoryReportRepository) Save(_ context.Context, report *domain.RunResult) error {
	cp := *report
	cp.SampleErrors = append([]string(nil), report.SampleErrors...)
	r.mu.Lock()
	r.latest = &cp
	r.mu.Unlock()
	return nil
}

// Latest implements ports.ReportRepository.
func (r *MemoryReportRepository) Latest(_ context.Context) (*domain.RunResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil, domain.ErrReportNotFound
	}
	cp := *r.latest
	return &cp, nil
}
