package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AdminStudentHandler manages the student roster.
type AdminStudentHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

// NewAdminStudentHandler constructs the handler.
func NewAdminStudentHandler(service service.StudentService, logger zerolog.Logger) *AdminStudentHandler {
	return &AdminStudentHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_student_handler").Logger(),
	}
}

// Register attaches roster routes to the router group.
func (h *AdminStudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
}

func (h *AdminStudentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePage(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	response, err := h.service.List(c.UserContext(), dto.StudentListRequest{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list students")
	}

	return utils.OK(c, response.Items, "students retrieved", response.Pagination)
}

func (h *AdminStudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *AdminStudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch student")
	}

	return utils.SendSuccess(c, "student retrieved", student)
}
