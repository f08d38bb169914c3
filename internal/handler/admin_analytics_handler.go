package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AdminAnalyticsHandler exposes per-assignment submission statistics.
type AdminAnalyticsHandler struct {
	service service.AssignmentAnalyticsService
	logger  zerolog.Logger
}

// NewAdminAnalyticsHandler constructs the handler.
func NewAdminAnalyticsHandler(service service.AssignmentAnalyticsService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_analytics_handler").Logger(),
	}
}

// Register attaches analytics routes.
func (h *AdminAnalyticsHandler) Register(router fiber.Router) {
	router.Get("/assignments/:id", h.assignment)
}

func (h *AdminAnalyticsHandler) assignment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.Summary(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load analytics")
	}

	return utils.SendSuccess(c, "analytics retrieved", summary)
}
