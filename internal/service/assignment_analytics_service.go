package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// AssignmentAnalyticsService aggregates submission statistics for mentors.
type AssignmentAnalyticsService interface {
	Summary(ctx context.Context, assignmentID uint) (dto.AssignmentAnalyticsResponse, error)
}

type assignmentAnalyticsService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentAnalyticsService constructs the analytics service. cache may be nil.
func NewAssignmentAnalyticsService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AssignmentAnalyticsService {
	return &assignmentAnalyticsService{
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "assignment_analytics_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentAnalyticsService) Summary(ctx context.Context, assignmentID uint) (dto.AssignmentAnalyticsResponse, error) {
	cacheKey := analyticsCacheKey(assignmentID)
	tracer := otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/assignment_analytics")
	ctx, span := tracer.Start(ctx, "analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", cacheKey))
	defer span.End()

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentAnalyticsResponse{}, ErrAssignmentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_assignment_failed")
		return dto.AssignmentAnalyticsResponse{}, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AssignmentAnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_submissions_failed")
		return dto.AssignmentAnalyticsResponse{}, err
	}

	summary := s.buildSummary(assignment, submissions)
	span.SetAttributes(attribute.Int("analytics.submission_count", len(submissions)))

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *assignmentAnalyticsService) buildSummary(assignment models.Assignment, submissions []models.Submission) dto.AssignmentAnalyticsResponse {
	maxScore := assessment.MaxScore(assignment)
	summary := dto.AssignmentAnalyticsResponse{
		AssignmentID: assignment.ID,
		MaxScore:     maxScore,
		GradeDistribution: dto.GradeDistributionResponse{
			"90-100": 0,
			"75-89":  0,
			"60-74":  0,
			"0-59":   0,
		},
		Questions:   []dto.QuestionStat{},
		GeneratedAt: s.now().UTC(),
	}

	stats := make(map[uint]*dto.QuestionStat)
	var gradeSum float64
	var graded int64

	for _, submission := range submissions {
		summary.Submissions++
		if !submission.IsFinal {
			continue
		}
		summary.FinalSubmissions++

		if assignment.DueDate != nil {
			if submission.SubmittedAt.After(*assignment.DueDate) {
				summary.LateSubmissions++
			} else {
				summary.OnTimeSubmissions++
			}
		}

		if submission.Grade == nil {
			summary.PendingReview++
		} else {
			graded++
			gradeSum += *submission.Grade
			summary.GradeDistribution[gradeBucket(*submission.Grade, maxScore)]++
		}

		evaluation := assessment.Evaluate(assignment, submission.AnswerList())
		for questionID, correct := range evaluation.Outcome {
			stat, ok := stats[questionID]
			if !ok {
				stat = &dto.QuestionStat{QuestionID: questionID}
				stats[questionID] = stat
			}
			stat.Attempts++
			if correct {
				stat.Correct++
			}
		}
	}

	if graded > 0 {
		average := gradeSum / float64(graded)
		summary.AverageGrade = &average
	}

	for _, questionID := range assignment.QuestionIDs() {
		stat, ok := stats[questionID]
		if !ok {
			continue
		}
		stat.CorrectRate = float64(stat.Correct) / float64(stat.Attempts)
		summary.Questions = append(summary.Questions, *stat)
	}

	return summary
}

func gradeBucket(grade float64, maxScore int) string {
	if maxScore <= 0 {
		maxScore = 1
	}
	percent := grade / float64(maxScore) * 100
	switch {
	case percent >= 90:
		return "90-100"
	case percent >= 75:
		return "75-89"
	case percent >= 60:
		return "60-74"
	default:
		return "0-59"
	}
}
