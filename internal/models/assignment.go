package models

import "time"

// Assignment modes.
const (
	AssignmentModeAssignment = "assignment"
	AssignmentModeQuiz       = "quiz"
	AssignmentModeTest       = "test"
)

// Assignment groups an ordered list of questions dispatched to students.
type Assignment struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	Title            string                `gorm:"size:255;not null" json:"title"`
	Description      string                `gorm:"type:text" json:"description"`
	Mode             string                `gorm:"size:32;not null;default:assignment" json:"mode"`
	VisibleToAll     bool                  `gorm:"not null" json:"visible_to_all"`
	StartDate        *time.Time            `json:"start_date"`
	DueDate          *time.Time            `json:"due_date"`
	TimeLimitMinutes *int                  `json:"time_limit_minutes"`
	IsDispatched     bool                  `gorm:"not null;default:false;index" json:"is_dispatched"`
	DispatchDate     *time.Time            `json:"dispatch_date"`
	CreatedBy        uint                  `json:"created_by"`
	CreatedByRole    string                `gorm:"size:32" json:"created_by_role"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Items            []AssignmentQuestion  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Recipients       []AssignmentRecipient `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// AssignmentQuestion places a question at a position inside an assignment.
type AssignmentQuestion struct {
	AssignmentID uint     `gorm:"primaryKey" json:"assignment_id"`
	QuestionID   uint     `gorm:"primaryKey;index" json:"question_id"`
	Position     int      `gorm:"not null" json:"position"`
	Question     Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}

// AssignmentRecipient grants a student visibility of an assignment that is not visible to all.
type AssignmentRecipient struct {
	AssignmentID uint `gorm:"primaryKey" json:"assignment_id"`
	StudentID    uint `gorm:"primaryKey;index" json:"student_id"`
}

// Questions returns the referenced questions in assignment order.
func (a Assignment) Questions() []Question {
	questions := make([]Question, 0, len(a.Items))
	for _, item := range a.Items {
		questions = append(questions, item.Question)
	}
	return questions
}

// QuestionIDs returns the ordered question ids of the assignment.
func (a Assignment) QuestionIDs() []uint {
	ids := make([]uint, 0, len(a.Items))
	for _, item := range a.Items {
		ids = append(ids, item.QuestionID)
	}
	return ids
}

// RecipientIDs returns the ids of students explicitly granted visibility.
func (a Assignment) RecipientIDs() []uint {
	ids := make([]uint, 0, len(a.Recipients))
	for _, recipient := range a.Recipients {
		ids = append(ids, recipient.StudentID)
	}
	return ids
}

// RequiresManualGrading reports whether any question has to be reviewed by a mentor.
func (a Assignment) RequiresManualGrading() bool {
	for _, item := range a.Items {
		if item.Question.RequiresManualGrading() {
			return true
		}
	}
	return false
}

// IsVisibleTo reports whether the student may see the assignment.
func (a Assignment) IsVisibleTo(studentID uint) bool {
	if !a.IsDispatched {
		return false
	}
	if a.VisibleToAll {
		return true
	}
	for _, recipient := range a.Recipients {
		if recipient.StudentID == studentID {
			return true
		}
	}
	return false
}

// HasTimeLimit reports whether a countdown applies to attempts of this assignment.
func (a Assignment) HasTimeLimit() bool {
	return a.Mode != AssignmentModeAssignment && a.TimeLimitMinutes != nil && *a.TimeLimitMinutes > 0
}
