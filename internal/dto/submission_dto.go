package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionAnswerPayload is one answer inside a save-draft or submit request.
type SubmissionAnswerPayload struct {
	QuestionID uint        `json:"question_id" validate:"required,gt=0"`
	Response   interface{} `json:"response"`
}

// SubmissionUpsertRequest is the body of a save-draft or submit call.
type SubmissionUpsertRequest struct {
	Answers         []SubmissionAnswerPayload `json:"answers" validate:"required,dive"`
	TestCaseResults json.RawMessage           `json:"test_case_results"`
	IsFinal         bool                      `json:"is_final"`
	TimeTakenMs     *int64                    `json:"time_taken_ms" validate:"omitempty,gte=0"`
}

// SubmissionAnswerResponse serializes a stored answer.
type SubmissionAnswerResponse struct {
	QuestionID uint        `json:"question_id"`
	Response   interface{} `json:"response"`
	IsCorrect  *bool       `json:"is_correct,omitempty"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint                             `json:"id"`
	AssignmentID    uint                             `json:"assignment_id"`
	StudentID       uint                             `json:"student_id"`
	Answers         []SubmissionAnswerResponse       `json:"answers"`
	TestCaseResults json.RawMessage                  `json:"test_case_results,omitempty"`
	Grade           *float64                         `json:"grade"`
	Feedback        *string                          `json:"feedback"`
	IsFinal         bool                             `json:"is_final"`
	SubmittedAt     time.Time                        `json:"submitted_at"`
	TimeTakenMs     *int64                           `json:"time_taken_ms"`
	GradedBy        *uint                            `json:"graded_by"`
	GradedAt        *time.Time                       `json:"graded_at"`
	History         []SubmissionGradeHistoryResponse `json:"history,omitempty"`
	Student         *StudentLite                     `json:"student,omitempty"`
	CreatedAt       time.Time                        `json:"created_at"`
	UpdatedAt       time.Time                        `json:"updated_at"`
}

// SubmissionResultResponse is returned after a save-draft or submit call.
type SubmissionResultResponse struct {
	Submission        SubmissionResponse `json:"submission"`
	Status            string             `json:"status"`
	MaxScore          int                `json:"max_score"`
	ExceededTimeLimit bool               `json:"exceeded_time_limit"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Grade    *float64  `json:"grade"`
	Feedback *string   `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	answers := make([]SubmissionAnswerResponse, 0)
	for _, answer := range model.AnswerList() {
		answers = append(answers, SubmissionAnswerResponse{
			QuestionID: answer.QuestionID,
			Response:   answer.Response,
			IsCorrect:  answer.IsCorrect,
		})
	}

	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Answers:      answers,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		IsFinal:      model.IsFinal,
		SubmittedAt:  model.SubmittedAt,
		TimeTakenMs:  model.TimeTakenMs,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if len(model.TestCaseResults) > 0 && string(model.TestCaseResults) != "null" {
		response.TestCaseResults = json.RawMessage(model.TestCaseResults)
	}

	if model.Student.ID != 0 {
		response.Student = &StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Grade:    entry.Grade,
				Feedback: entry.Feedback,
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
			})
		}
		response.History = history
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
