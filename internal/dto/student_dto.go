package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// StudentDashboardResponse aggregates assignment progress for a student.
type StudentDashboardResponse struct {
	Summary  ProgressSummary      `json:"summary"`
	Upcoming []AssignmentProgress `json:"upcoming_assignments"`
	Pending  []AssignmentProgress `json:"pending_assignments"`
	Recent   []AssignmentProgress `json:"recent_results"`
}

// ProgressSummary counts assignments per derived status.
type ProgressSummary struct {
	TotalAssignments int      `json:"total_assignments"`
	Upcoming         int      `json:"upcoming"`
	Pending          int      `json:"pending"`
	PendingReview    int      `json:"pending_review"`
	Completed        int      `json:"completed"`
	Closed           int      `json:"closed"`
	AverageGrade     *float64 `json:"average_grade"`
	CompletionRate   float64  `json:"completion_rate"`
}

// AssignmentProgress describes the state of a single assignment relative to a student.
type AssignmentProgress struct {
	AssignmentID uint       `json:"assignment_id"`
	Title        string     `json:"title"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	StartDate    *time.Time `json:"start_date"`
	DueDate      *time.Time `json:"due_date"`
	SubmissionID *uint      `json:"submission_id"`
	Grade        *float64   `json:"grade"`
	MaxScore     int        `json:"max_score"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StudentCreateRequest registers a student in the roster.
type StudentCreateRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// StudentListRequest filters the roster.
type StudentListRequest struct {
	Search   string
	Page     int
	PageSize int
}

// StudentResponse serializes a roster entry.
type StudentResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentListResponse wraps a page of students.
type StudentListResponse struct {
	Items      []StudentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewStudentResponse converts a Student model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
	}
}
