package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SubmissionAnswer is the response a student gave to one question.
type SubmissionAnswer struct {
	QuestionID uint        `json:"question_id"`
	Response   interface{} `json:"response"`
	IsCorrect  *bool       `json:"is_correct,omitempty"`
}

// Submission is the single answer sheet a student keeps for an assignment.
type Submission struct {
	ID              uint                     `gorm:"primaryKey" json:"id"`
	AssignmentID    uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID       uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_student;index" json:"student_id"`
	Answers         datatypes.JSON           `gorm:"type:json" json:"-"`
	TestCaseResults datatypes.JSON           `gorm:"type:json" json:"-"`
	Grade           *float64                 `json:"grade"`
	Feedback        *string                  `gorm:"type:text" json:"feedback"`
	IsFinal         bool                     `gorm:"not null;default:false;index" json:"is_final"`
	SubmittedAt     time.Time                `gorm:"not null" json:"submitted_at"`
	TimeTakenMs     *int64                   `json:"time_taken_ms"`
	GradedBy        *uint                    `json:"graded_by"`
	GradedAt        *time.Time               `json:"graded_at"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Assignment      Assignment               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student         Student                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	History         []SubmissionGradeHistory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history"`
}

// SubmissionGradeHistory records every grading action performed by a mentor.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Grade        *float64  `json:"grade"`
	Feedback     *string   `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}

// SetAnswers serializes the answer list into the JSON column.
func (s *Submission) SetAnswers(answers []SubmissionAnswer) {
	if answers == nil {
		answers = []SubmissionAnswer{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		s.Answers = datatypes.JSON([]byte("[]"))
		return
	}
	s.Answers = datatypes.JSON(data)
}

// AnswerList decodes the stored answers.
func (s Submission) AnswerList() []SubmissionAnswer {
	if len(s.Answers) == 0 {
		return nil
	}

	var answers []SubmissionAnswer
	if err := json.Unmarshal(s.Answers, &answers); err != nil {
		return nil
	}

	return answers
}

// IsGraded reports whether the submission carries a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
