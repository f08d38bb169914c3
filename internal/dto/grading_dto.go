package dto

import (
	"math"
	"strings"
)

// AnswerCorrectionPayload overrides the correctness of one answer.
type AnswerCorrectionPayload struct {
	QuestionID uint `json:"question_id" validate:"required,gt=0"`
	IsCorrect  bool `json:"is_correct"`
}

// GradeSubmissionRequest is sent by mentors to grade a submission. Grade and
// feedback are decoded loosely: a value of the wrong type is ignored rather
// than rejected.
type GradeSubmissionRequest struct {
	Answers  []AnswerCorrectionPayload `json:"answers" validate:"omitempty,dive"`
	Grade    interface{}               `json:"grade"`
	Feedback interface{}               `json:"feedback"`
}

// GradeValue returns the grade when it was supplied as a finite number.
func (r GradeSubmissionRequest) GradeValue() (float64, bool) {
	value, ok := r.Grade.(float64)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// FeedbackValue returns the feedback when it was supplied as a string.
func (r GradeSubmissionRequest) FeedbackValue() (string, bool) {
	value, ok := r.Feedback.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
