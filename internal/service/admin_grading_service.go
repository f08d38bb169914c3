package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// GradingService lets mentors review and grade submissions.
type GradingService interface {
	ListForAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionResponse, error)
}

type gradingService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	events      EventPublisher
	cache       ResultCache
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	events EventPublisher,
	cache ResultCache,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		assignments: assignments,
		submissions: submissions,
		validator:   validator,
		activity:    activity,
		events:      events,
		cache:       cache,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/grading"),
		sanitizer:   bluemonday.UGCPolicy(),
		now:         time.Now,
	}
}

func (s *gradingService) ListForAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *gradingService) Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

// Grade merges the mentor's per-answer corrections into the submission and
// replaces grade and feedback when they were supplied with the right type.
// Applying a grade completes the review and marks the submission final.
func (s *gradingService) Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.apply", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	fail := func(err error, status string) (dto.SubmissionResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.SubmissionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return fail(err, "validation_failed")
	}

	grade, hasGrade := payload.GradeValue()
	if hasGrade && grade < 0 {
		return fail(fieldError("grade", "must not be negative"), "validation_failed")
	}

	submission, err := s.load(ctx, submissionID)
	if err != nil {
		return fail(err, "submission_unavailable")
	}

	submission.SetAnswers(ApplyCorrections(submission.AnswerList(), payload.Answers))

	if hasGrade {
		submission.Grade = &grade
		submission.IsFinal = true
		span.SetAttributes(attribute.Float64("grading.grade", grade))
	}
	if feedback, ok := payload.FeedbackValue(); ok {
		cleaned := s.sanitizer.Sanitize(feedback)
		submission.Feedback = &cleaned
	}

	gradedAt := s.now().UTC()
	gradedBy := actor.ID
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy

	history := models.SubmissionGradeHistory{
		Grade:    submission.Grade,
		Feedback: submission.Feedback,
		GradedBy: actor.ID,
		GradedAt: gradedAt,
	}
	if err := s.submissions.SaveGrade(ctx, &submission, &history); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to persist grading")
		return fail(err, "grading_failed")
	}

	if s.cache != nil {
		s.cache.InvalidateAssignment(ctx, submission.AssignmentID)
		s.cache.InvalidateStudent(ctx, submission.StudentID)
	}

	metadata := map[string]interface{}{
		"assignment_id": submission.AssignmentID,
		"student_id":    submission.StudentID,
		"corrections":   len(payload.Answers),
	}
	if hasGrade {
		metadata["grade"] = grade
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionSubmissionGraded,
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata:   metadata,
	})

	studentID := submission.StudentID
	publishEvent(ctx, s.events, s.logger, DomainEvent{
		Type:         EventSubmissionGraded,
		AssignmentID: submission.AssignmentID,
		SubmissionID: &submission.ID,
		StudentID:    &studentID,
		ActorID:      &gradedBy,
		Grade:        submission.Grade,
	})

	stored, err := s.load(ctx, submissionID)
	if err != nil {
		return fail(err, "reload_failed")
	}

	s.logger.Info().Uint("submission_id", submissionID).Uint("actor_id", actor.ID).Bool("graded", hasGrade).Msg("submission graded")
	return dto.NewSubmissionResponse(stored), nil
}

func (s *gradingService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

// ApplyCorrections overrides the correctness of answers by question id.
// Answers without a matching correction keep their previous value and
// corrections for unanswered questions are dropped.
func ApplyCorrections(answers []models.SubmissionAnswer, corrections []dto.AnswerCorrectionPayload) []models.SubmissionAnswer {
	overrides := make(map[uint]bool, len(corrections))
	for _, correction := range corrections {
		overrides[correction.QuestionID] = correction.IsCorrect
	}

	merged := make([]models.SubmissionAnswer, len(answers))
	for idx, answer := range answers {
		if value, ok := overrides[answer.QuestionID]; ok {
			correct := value
			answer.IsCorrect = &correct
		}
		merged[idx] = answer
	}
	return merged
}
