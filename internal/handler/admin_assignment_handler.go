package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AdminAssignmentHandler wires assignment authoring and dispatch endpoints.
type AdminAssignmentHandler struct {
	service service.AdminAssignmentService
	grading service.GradingService
	logger  zerolog.Logger
}

// NewAdminAssignmentHandler constructs the handler.
func NewAdminAssignmentHandler(service service.AdminAssignmentService, grading service.GradingService, logger zerolog.Logger) *AdminAssignmentHandler {
	return &AdminAssignmentHandler{
		service: service,
		grading: grading,
		logger:  logger.With().Str("component", "admin_assignment_handler").Logger(),
	}
}

// Register attaches assignment admin routes to the router group.
func (h *AdminAssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/dispatch", h.dispatch)
	router.Post("/:id/undispatch", h.undispatch)
	router.Get("/:id/submissions", h.submissions)
}

func (h *AdminAssignmentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePage(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}
	dispatched, err := parseQueryBool(c, "dispatched")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid dispatched filter")
	}

	response, err := h.service.List(c.UserContext(), dto.AssignmentListRequest{
		Search:     c.Query("search"),
		Mode:       c.Query("mode"),
		Dispatched: dispatched,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list assignments")
	}

	return utils.OK(c, response.Items, "assignments retrieved", response.Pagination)
}

func (h *AdminAssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create assignment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AdminAssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AdminAssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update assignment")
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AdminAssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete assignment")
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

func (h *AdminAssignmentHandler) dispatch(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Dispatch(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to dispatch assignment")
	}

	return utils.SendSuccess(c, "assignment dispatched", assignment)
}

func (h *AdminAssignmentHandler) undispatch(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Undispatch(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to undispatch assignment")
	}

	return utils.SendSuccess(c, "assignment undispatched", assignment)
}

func (h *AdminAssignmentHandler) submissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.grading.ListForAssignment(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}
