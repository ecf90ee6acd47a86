package handler

import (
	"errors"

	"courier-sync/internal/features/tracking/domain"
	"courier-sync/internal/features/tracking/ports"
	"courier-sync/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
)

// TrackingHandler handles HTTP requests for single consignment lookups.
type TrackingHandler struct {
	trackingService *service.TrackingService
	configs         ports.ConfigSource
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(trackingService *service.TrackingService, configs ports.ConfigSource) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		configs:         configs,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// GetConsignmentStatus godoc
// @Summary Look up the courier status of one consignment
// @Description Fetches the normalized status with the tenant's provider configuration. Nothing is persisted.
// @Tags tracking
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param consignmentId path string true "Consignment ID"
// @Param provider query string true "Provider ID (e.g., steadfast, pathao, paperfly, coordinadora_co)"
// @Success 200 {object} domain.StatusResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /tenants/{tenantId}/tracking/{consignmentId} [get]
func (h *TrackingHandler) GetConsignmentStatus(c *fiber.Ctx) error {
	tenantID := c.Params("tenantId")
	consignmentID := c.Params("consignmentId")
	if tenantID == "" || consignmentID == "" {
		return h.fail(c, fiber.StatusBadRequest, "tenant id and consignment id are required")
	}

	provider := c.Query("provider")
	if provider == "" {
		return h.fail(c, fiber.StatusBadRequest, "provider query parameter is required")
	}

	result, err := h.trackingService.CheckConsignment(c.UserContext(), h.configs, tenantID, provider, consignmentID)
	if err != nil {
		var pe *domain.ProviderError
		switch {
		case errors.Is(err, service.ErrCourierNotSupported):
			return h.fail(c, fiber.StatusNotFound, "courier not supported")
		case errors.Is(err, domain.ErrProviderNotConfigured):
			return h.fail(c, fiber.StatusNotFound, err.Error())
		case errors.As(err, &pe):
			return h.fail(c, fiber.StatusBadGateway, err.Error())
		default:
			return h.fail(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(result)
}

func (h *TrackingHandler) fail(c *fiber.Ctx, status int, message string) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID,
	})
}
