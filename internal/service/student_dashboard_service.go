package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

const recentResultsLimit = 5

// StudentDashboardService produces aggregated progress for a student.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator.
func NewStudentDashboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	assignments, err := s.assignments.ListVisibleTo(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	byAssignment, err := submissionsByAssignment(ctx, s.submissions, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(assignments, byAssignment)

	if s.cache != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) buildResponse(assignments []models.Assignment, submissions map[uint]models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	summary := dto.ProgressSummary{}
	upcoming := make([]dto.AssignmentProgress, 0)
	pending := make([]dto.AssignmentProgress, 0)
	recent := make([]dto.AssignmentProgress, 0)

	var gradeTotal float64
	var gradedCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++

		var submission *models.Submission
		if stored, ok := submissions[assignment.ID]; ok {
			submission = &stored
		}

		status := assessment.DeriveStatus(now, assignment, submission)
		progress := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			Mode:         assignment.Mode,
			Status:       string(status),
			StartDate:    assignment.StartDate,
			DueDate:      assignment.DueDate,
			MaxScore:     assessment.MaxScore(assignment),
			UpdatedAt:    assignment.UpdatedAt,
		}
		if submission != nil {
			id := submission.ID
			progress.SubmissionID = &id
			progress.Grade = submission.Grade
			progress.UpdatedAt = submission.UpdatedAt
			if submission.Grade != nil {
				gradeTotal += *submission.Grade
				gradedCount++
			}
		}

		switch status {
		case assessment.StatusUpcoming:
			summary.Upcoming++
			upcoming = append(upcoming, progress)
		case assessment.StatusPending:
			summary.Pending++
			pending = append(pending, progress)
		case assessment.StatusPendingReview:
			summary.PendingReview++
			recent = append(recent, progress)
		case assessment.StatusCompleted:
			summary.Completed++
			recent = append(recent, progress)
		case assessment.StatusClosed:
			summary.Closed++
		}
	}

	if gradedCount > 0 {
		average := gradeTotal / float64(gradedCount)
		summary.AverageGrade = &average
	}
	if summary.TotalAssignments > 0 {
		summary.CompletionRate = float64(summary.Completed) / float64(summary.TotalAssignments) * 100
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartDate.Before(*upcoming[j].StartDate)
	})
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > recentResultsLimit {
		recent = recent[:recentResultsLimit]
	}

	return dto.StudentDashboardResponse{
		Summary:  summary,
		Upcoming: upcoming,
		Pending:  pending,
		Recent:   recent,
	}
}
