package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// AssignmentHandler serves the student view of assignments, their own
// submissions and the leaderboard.
type AssignmentHandler struct {
	assignments service.AssignmentService
	submissions service.SubmissionService
	leaderboard service.LeaderboardService
	logger      zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(
	assignments service.AssignmentService,
	submissions service.SubmissionService,
	leaderboard service.LeaderboardService,
	logger zerolog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		submissions: submissions,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the student routes. Writes to a submission pass through
// submitGuards (role gate, rate limiter) first.
func (h *AssignmentHandler) Register(router fiber.Router, submitGuards ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/submission", h.getSubmission)
	router.Put("/:id/submission", append(submitGuards, h.upsertSubmission)...)
	router.Get("/:id/leaderboard", h.getLeaderboard)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.assignments.ListForStudent(c.UserContext(), userIDFromContext(c), c.Query("status"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.assignments.GetForStudent(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) getSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.submissions.GetOwn(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch submission")
	}

	return utils.SendSuccess(c, "submission retrieved", result)
}

func (h *AssignmentHandler) upsertSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.submissions.Upsert(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save submission")
	}

	message := "draft saved"
	if result.Submission.IsFinal {
		message = "submission received"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *AssignmentHandler) getLeaderboard(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	board, err := h.leaderboard.Get(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to build leaderboard")
	}

	return utils.SendSuccess(c, "leaderboard retrieved", board)
}
