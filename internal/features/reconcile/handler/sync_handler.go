package handler

import (
	"crypto/subtle"
	"errors"
	"strconv"

	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"

	"github.com/gofiber/fiber/v2"
)

// TokenHeader carries the shared trigger secret.
const TokenHeader = "X-Sync-Token"

// SyncHandler exposes reconciliation runs over HTTP.
type SyncHandler struct {
	runs  ports.RunService
	token string
}

// NewSyncHandler creates a new SyncHandler. An empty token disables the header check.
func NewSyncHandler(runs ports.RunService, token string) *SyncHandler {
	return &SyncHandler{
		runs:  runs,
		token: token,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// RunSync godoc
// @Summary Run a courier status reconciliation
// @Description Reconciles eligible orders of every active tenant, or of one tenant, and returns the run report.
// @Tags sync
// @Produce json
// @Param tenantId query string false "Restrict the run to one tenant"
// @Param batchSize query int false "Max orders per tenant"
// @Param concurrency query int false "Max simultaneous provider calls per tenant"
// @Param X-Sync-Token header string false "Trigger secret when configured"
// @Success 200 {object} domain.RunResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync/courier-status [get]
// @Router /sync/courier-status [post]
func (h *SyncHandler) RunSync(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return h.fail(c, fiber.StatusUnauthorized, "invalid sync token")
	}

	batchSize, err := optionalInt(c.Query("batchSize"))
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, "batchSize must be a non-negative integer")
	}
	concurrency, err := optionalInt(c.Query("concurrency"))
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, "concurrency must be a non-negative integer")
	}

	report, err := h.runs.RunOnce(c.UserContext(), domain.RunOptions{
		TenantID:    c.Query("tenantId"),
		BatchSize:   batchSize,
		Concurrency: concurrency,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return h.fail(c, fiber.StatusNotFound, "tenant not found")
		}
		return h.fail(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(report)
}

// GetLastRun godoc
// @Summary Get the latest run report
// @Tags sync
// @Produce json
// @Success 200 {object} domain.RunResult
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync/courier-status/last [get]
func (h *SyncHandler) GetLastRun(c *fiber.Ctx) error {
	report, err := h.runs.LastReport(c.UserContext())
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return h.fail(c, fiber.StatusNotFound, "no run report available")
		}
		return h.fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(report)
}

func (h *SyncHandler) authorized(c *fiber.Ctx) bool {
	if h.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(c.Get(TokenHeader)), []byte(h.token)) == 1
}

func (h *SyncHandler) fail(c *fiber.Ctx, status int, message string) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID,
	})
}

// optionalInt parses a query number. Empty means zero, which selects the configured default.
func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
