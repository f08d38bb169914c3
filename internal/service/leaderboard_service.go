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
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// LeaderboardService ranks the final graded submissions of an assignment.
type LeaderboardService interface {
	Get(ctx context.Context, assignmentID uint, viewer ActivityActor) (dto.LeaderboardResponse, error)
}

type leaderboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewLeaderboardService builds the leaderboard service. cache may be nil.
func NewLeaderboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "leaderboard_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/leaderboard"),
		now:         time.Now,
	}
}

func (s *leaderboardService) Get(ctx context.Context, assignmentID uint, viewer ActivityActor) (dto.LeaderboardResponse, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.rank", trace.WithAttributes(
		attribute.Int64("leaderboard.assignment_id", int64(assignmentID)),
	))
	defer span.End()

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LeaderboardResponse{}, ErrAssignmentNotFound
		}
		return dto.LeaderboardResponse{}, err
	}
	if !models.IsStaffRole(viewer.Role) && !assignment.IsVisibleTo(viewer.ID) {
		return dto.LeaderboardResponse{}, ErrAssignmentForbidden
	}

	cacheKey := leaderboardCacheKey(assignmentID)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("leaderboard.cache_hit", true))
		return cached, nil
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignmentID,
		FinalOnly:    true,
		GradedOnly:   true,
	})
	if err != nil {
		span.RecordError(err)
		return dto.LeaderboardResponse{}, err
	}

	response := dto.LeaderboardResponse{
		AssignmentID: assignmentID,
		MaxScore:     assessment.MaxScore(assignment),
		Entries:      dto.NewLeaderboardEntries(assessment.Rank(submissions)),
		GeneratedAt:  s.now().UTC(),
	}
	span.SetAttributes(attribute.Int("leaderboard.entries", len(response.Entries)))

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *leaderboardService) readCache(ctx context.Context, key string) (dto.LeaderboardResponse, bool) {
	if s.cache == nil {
		return dto.LeaderboardResponse{}, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read leaderboard cache")
		}
		observability.LeaderboardCache().WithLabelValues("miss").Inc()
		return dto.LeaderboardResponse{}, false
	}

	var response dto.LeaderboardResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		observability.LeaderboardCache().WithLabelValues("miss").Inc()
		return dto.LeaderboardResponse{}, false
	}

	observability.LeaderboardCache().WithLabelValues("hit").Inc()
	return response, true
}

func (s *leaderboardService) writeCache(ctx context.Context, key string, response dto.LeaderboardResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store leaderboard cache")
	}
}
