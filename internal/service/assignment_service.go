package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// ErrAssignmentForbidden indicates the assignment is not visible to the caller.
var ErrAssignmentForbidden = errors.New("assignment is not available to this student")

// AssignmentService exposes the student view of dispatched assignments.
type AssignmentService interface {
	ListForStudent(ctx context.Context, studentID uint, status string) ([]dto.StudentAssignmentResponse, error)
	GetForStudent(ctx context.Context, assignmentID, studentID uint) (dto.StudentAssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs the student assignment service.
func NewAssignmentService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		submissions: submissions,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) ListForStudent(ctx context.Context, studentID uint, status string) ([]dto.StudentAssignmentResponse, error) {
	filter := assessment.Status(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, fieldError("status", "unknown status %q", status)
	}

	assignments, err := s.assignments.ListVisibleTo(ctx, studentID)
	if err != nil {
		return nil, err
	}

	byAssignment, err := submissionsByAssignment(ctx, s.submissions, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]dto.StudentAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		var submission *models.Submission
		if stored, ok := byAssignment[assignment.ID]; ok {
			submission = &stored
		}

		derived := assessment.DeriveStatus(now, assignment, submission)
		if filter != "" && derived != filter {
			continue
		}
		responses = append(responses, dto.NewStudentAssignmentResponse(assignment, derived, submission, false))
	}

	return responses, nil
}

func (s *assignmentService) GetForStudent(ctx context.Context, assignmentID, studentID uint) (dto.StudentAssignmentResponse, error) {
	assignment, err := loadVisibleAssignment(ctx, s.assignments, assignmentID, studentID)
	if err != nil {
		return dto.StudentAssignmentResponse{}, err
	}

	submission, err := findSubmission(ctx, s.submissions, assignmentID, studentID)
	if err != nil {
		return dto.StudentAssignmentResponse{}, err
	}

	derived := assessment.DeriveStatus(s.now(), assignment, submission)
	return dto.NewStudentAssignmentResponse(assignment, derived, submission, true), nil
}

// loadVisibleAssignment returns the assignment when it exists and the student may see it.
func loadVisibleAssignment(ctx context.Context, repo repository.AssignmentRepository, assignmentID, studentID uint) (models.Assignment, error) {
	assignment, err := repo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !assignment.IsVisibleTo(studentID) {
		return models.Assignment{}, ErrAssignmentForbidden
	}

	return assignment, nil
}

// findSubmission returns the student's submission or nil when none exists yet.
func findSubmission(ctx context.Context, repo repository.SubmissionRepository, assignmentID, studentID uint) (*models.Submission, error) {
	submission, err := repo.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func submissionsByAssignment(ctx context.Context, repo repository.SubmissionRepository, studentID uint) (map[uint]models.Submission, error) {
	submissions, err := repo.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	byAssignment := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		byAssignment[submission.AssignmentID] = submission
	}
	return byAssignment, nil
}
