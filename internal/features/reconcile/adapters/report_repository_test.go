package adapters

import (
	"context"
	"testing"
	"time"

	"courier-sync/internal/core/cache"
	"courier-sync/internal/features/reconcile/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *domain.RunResult {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := domain.NewRunResult("ab12cd34", started)
	report.TenantsScanned = 2
	report.AddTenant(domain.TenantRunResult{TenantID: "T", OrdersScanned: 4, Updated: 1, Unchanged: 3})
	report.Finish(started.Add(2 * time.Second))
	return report
}

func TestRedisReportRepository_SaveLatest(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()

	repo := NewRedisReportRepository(adapter)
	ctx := context.Background()

	_, err = repo.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	require.NoError(t, repo.Save(ctx, sampleReport()))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", got.RunID)
	assert.Equal(t, 2, got.TenantsScanned)
	assert.Equal(t, 1, got.Updated)
	assert.Equal(t, int64(2000), got.DurationMS)
	assert.True(t, mr.TTL(lastRunCacheKey) > 0)
}

func TestRedisReportRepository_CorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()
	require.NoError(t, mr.Set(lastRunCacheKey, "not-json"))

	_, err = NewRedisReportRepository(adapter).Latest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal run report")
}

func TestMemoryReportRepository(t *testing.T) {
	repo := &MemoryReportRepository{}
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	require.NoError(t, repo.Save(ctx, sampleReport()))
	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", got.RunID)
}
