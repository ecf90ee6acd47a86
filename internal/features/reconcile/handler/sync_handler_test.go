package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"courier-sync/internal/features/reconcile/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// MockRunService is a mock implementation of ports.RunService.
type MockRunService struct {
	mock.Mock
}

func (m *MockRunService) RunOnce(ctx context.Context, opts domain.RunOptions) (*domain.RunResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunResult), args.Error(1)
}

func (m *MockRunService) LastReport(ctx context.Context) (*domain.RunResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunResult), args.Error(1)
}

func newTestApp(runs *MockRunService, token string) *fiber.App {
	h := NewSyncHandler(runs, token)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Get("/sync/courier-status", h.RunSync)
	app.Post("/sync/courier-status", h.RunSync)
	app.Get("/sync/courier-status/last", h.GetLastRun)
	return app
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

// TestSyncHandler_RunSync_Success verifies the report is returned and options are forwarded.
func TestSyncHandler_RunSync_Success(t *testing.T) {
	runs := new(MockRunService)
	report := domain.NewRunResult("abcd1234", testTime)
	report.Updated = 2
	runs.On("RunOnce", mock.Anything, domain.RunOptions{TenantID: "T", BatchSize: 20, Concurrency: 3}).Return(report, nil)
	app := newTestApp(runs, "")

	req := httptest.NewRequest("POST", "/sync/courier-status?tenantId=T&batchSize=20&concurrency=3", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abcd1234", body["run_id"])
	assert.Equal(t, float64(2), body["updated"])
	assert.Equal(t, []any{}, body["sample_errors"])
	runs.AssertExpectations(t)
}

func TestSyncHandler_RunSync_Defaults(t *testing.T) {
	runs := new(MockRunService)
	runs.On("RunOnce", mock.Anything, domain.RunOptions{}).Return(domain.NewRunResult("r", testTime), nil)
	app := newTestApp(runs, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/sync/courier-status", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	runs.AssertExpectations(t)
}

func TestSyncHandler_RunSync_BadNumbers(t *testing.T) {
	for _, query := range []string{"batchSize=abc", "batchSize=-1", "concurrency=1.5", "concurrency=-3"} {
		t.Run(query, func(t *testing.T) {
			runs := new(MockRunService)
			app := newTestApp(runs, "")

			resp, err := app.Test(httptest.NewRequest("GET", "/sync/courier-status?"+query, nil))

			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "test-ray-id", decodeError(t, resp.Body).RayID)
			runs.AssertNotCalled(t, "RunOnce", mock.Anything, mock.Anything)
		})
	}
}

func TestSyncHandler_RunSync_UnknownTenant(t *testing.T) {
	runs := new(MockRunService)
	err := &domain.TenantEnumerationError{Err: domain.ErrTenantNotFound}
	runs.On("RunOnce", mock.Anything, mock.Anything).Return(nil, err)
	app := newTestApp(runs, "")

	resp, testErr := app.Test(httptest.NewRequest("GET", "/sync/courier-status?tenantId=ghost", nil))

	require.NoError(t, testErr)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "tenant not found", decodeError(t, resp.Body).Message)
}

func TestSyncHandler_RunSync_EnumerationFailure(t *testing.T) {
	runs := new(MockRunService)
	err := &domain.TenantEnumerationError{Err: errors.New("database unreachable")}
	runs.On("RunOnce", mock.Anything, mock.Anything).Return(nil, err)
	app := newTestApp(runs, "")

	resp, testErr := app.Test(httptest.NewRequest("POST", "/sync/courier-status", nil))

	require.NoError(t, testErr)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp.Body).Message, "database unreachable")
}

func TestSyncHandler_RunSync_Token(t *testing.T) {
	runs := new(MockRunService)
	runs.On("RunOnce", mock.Anything, mock.Anything).Return(domain.NewRunResult("r", testTime), nil)
	app := newTestApp(runs, "s3cret")

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/courier-status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("POST", "/sync/courier-status", nil)
	req.Header.Set(TokenHeader, "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("POST", "/sync/courier-status", nil)
	req.Header.Set(TokenHeader, "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	runs.AssertNumberOfCalls(t, "RunOnce", 1)
}

func TestSyncHandler_GetLastRun(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		runs := new(MockRunService)
		runs.On("LastReport", mock.Anything).Return(domain.NewRunResult("last0001", testTime), nil)
		app := newTestApp(runs, "")

		resp, err := app.Test(httptest.NewRequest("GET", "/sync/courier-status/last", nil))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var body domain.RunResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "last0001", body.RunID)
	})

	t.Run("NotFound", func(t *testing.T) {
		runs := new(MockRunService)
		runs.On("LastReport", mock.Anything).Return(nil, domain.ErrReportNotFound)
		app := newTestApp(runs, "")

		resp, err := app.Test(httptest.NewRequest("GET", "/sync/courier-status/last", nil))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("StoreError", func(t *testing.T) {
		runs := new(MockRunService)
		runs.On("LastReport", mock.Anything).Return(nil, errors.New("redis down"))
		app := newTestApp(runs, "")

		resp, err := app.Test(httptest.NewRequest("GET", "/sync/courier-status/last", nil))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}
