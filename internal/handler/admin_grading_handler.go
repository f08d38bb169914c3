package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AdminGradingHandler wires submission review endpoints for mentors and admins.
type AdminGradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewAdminGradingHandler constructs the handler.
func NewAdminGradingHandler(service service.GradingService, logger zerolog.Logger) *AdminGradingHandler {
	return &AdminGradingHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the router group.
func (h *AdminGradingHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Patch("/:id/grade", h.grade)
}

func (h *AdminGradingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch submission")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *AdminGradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Grade(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", submission)
}
