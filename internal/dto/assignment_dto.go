package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title            string  `json:"title" validate:"required,min=3,max=255"`
	Description      string  `json:"description"`
	Mode             string  `json:"mode" validate:"omitempty,oneof=assignment quiz test"`
	QuestionIDs      []uint  `json:"question_ids" validate:"required,min=1,dive,gt=0"`
	VisibleToAll     *bool   `json:"visible_to_all"`
	VisibleTo        []uint  `json:"visible_to" validate:"omitempty,dive,gt=0"`
	StartDate        *string `json:"start_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueDate          *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" validate:"omitempty,gt=0,lte=1440"`
}

// AssignmentUpdateRequest lists every mutable assignment field. Dispatch state
// is changed through the dispatch endpoints only. An empty date string clears
// the date and a zero time limit removes the limit.
type AssignmentUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description      *string `json:"description"`
	Mode             *string `json:"mode" validate:"omitempty,oneof=assignment quiz test"`
	QuestionIDs      *[]uint `json:"question_ids" validate:"omitempty,min=1,dive,gt=0"`
	VisibleToAll     *bool   `json:"visible_to_all"`
	VisibleTo        *[]uint `json:"visible_to" validate:"omitempty,dive,gt=0"`
	StartDate        *string `json:"start_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueDate          *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" validate:"omitempty,gte=0,lte=1440"`
}

// AssignmentListRequest carries mentor-side list filters.
type AssignmentListRequest struct {
	Search     string
	Mode       string `validate:"omitempty,oneof=assignment quiz test"`
	Dispatched *bool
	Page       int
	PageSize   int
}

// AssignmentResponse is the mentor-facing representation of an assignment.
type AssignmentResponse struct {
	ID                    uint               `json:"id"`
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	Mode                  string             `json:"mode"`
	VisibleToAll          bool               `json:"visible_to_all"`
	VisibleTo             []uint             `json:"visible_to"`
	StartDate             *time.Time         `json:"start_date"`
	DueDate               *time.Time         `json:"due_date"`
	TimeLimitMinutes      *int               `json:"time_limit_minutes"`
	IsDispatched          bool               `json:"is_dispatched"`
	DispatchDate          *time.Time         `json:"dispatch_date"`
	CreatedBy             uint               `json:"created_by"`
	CreatedByRole         string             `json:"created_by_role"`
	QuestionCount         int                `json:"question_count"`
	MaxScore              int                `json:"max_score"`
	RequiresManualGrading bool               `json:"requires_manual_grading"`
	Questions             []QuestionResponse `json:"questions,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// StudentAssignmentResponse is what a student sees for an assignment.
type StudentAssignmentResponse struct {
	ID                    uint                `json:"id"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	Mode                  string              `json:"mode"`
	StartDate             *time.Time          `json:"start_date"`
	DueDate               *time.Time          `json:"due_date"`
	TimeLimitMinutes      *int                `json:"time_limit_minutes"`
	DispatchDate          *time.Time          `json:"dispatch_date"`
	QuestionCount         int                 `json:"question_count"`
	MaxScore              int                 `json:"max_score"`
	RequiresManualGrading bool                `json:"requires_manual_grading"`
	Status                string              `json:"status"`
	Questions             []QuestionResponse  `json:"questions,omitempty"`
	Submission            *SubmissionResponse `json:"submission,omitempty"`
}

// NewAssignmentResponse converts a model into a mentor DTO.
func NewAssignmentResponse(model models.Assignment, withQuestions bool) AssignmentResponse {
	visibleTo := model.RecipientIDs()

	response := AssignmentResponse{
		ID:                    model.ID,
		Title:                 model.Title,
		Description:           model.Description,
		Mode:                  model.Mode,
		VisibleToAll:          model.VisibleToAll,
		VisibleTo:             visibleTo,
		StartDate:             model.StartDate,
		DueDate:               model.DueDate,
		TimeLimitMinutes:      model.TimeLimitMinutes,
		IsDispatched:          model.IsDispatched,
		DispatchDate:          model.DispatchDate,
		CreatedBy:             model.CreatedBy,
		CreatedByRole:         model.CreatedByRole,
		QuestionCount:         len(model.Items),
		MaxScore:              assessment.MaxScore(model),
		RequiresManualGrading: model.RequiresManualGrading(),
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}

	if withQuestions {
		response.Questions = NewQuestionResponseSlice(model.Questions(), true)
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment, false))
	}

	return responses
}

// NewStudentAssignmentResponse builds the student view. Questions are included
// when withQuestions is set and answer keys are only revealed once the
// submission is final.
func NewStudentAssignmentResponse(model models.Assignment, status assessment.Status, submission *models.Submission, withQuestions bool) StudentAssignmentResponse {
	response := StudentAssignmentResponse{
		ID:                    model.ID,
		Title:                 model.Title,
		Description:           model.Description,
		Mode:                  model.Mode,
		StartDate:             model.StartDate,
		DueDate:               model.DueDate,
		TimeLimitMinutes:      model.TimeLimitMinutes,
		DispatchDate:          model.DispatchDate,
		QuestionCount:         len(model.Items),
		MaxScore:              assessment.MaxScore(model),
		RequiresManualGrading: model.RequiresManualGrading(),
		Status:                string(status),
	}

	revealAnswers := submission != nil && submission.IsFinal
	if withQuestions {
		response.Questions = NewQuestionResponseSlice(model.Questions(), revealAnswers)
	}

	if submission != nil {
		sub := NewSubmissionResponse(*submission)
		response.Submission = &sub
	}

	return response
}
