package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// ErrSubmissionNotFound indicates the submission does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSubmissionWindowClosed indicates a write outside the assignment start/due window.
var ErrSubmissionWindowClosed = errors.New("assignment is not accepting submissions")

// SubmissionPolicy controls server-side deadline enforcement.
type SubmissionPolicy struct {
	EnforceDeadline bool
	DeadlineGrace   time.Duration
}

// SubmissionService implements the save-draft and submit protocol for students.
type SubmissionService interface {
	Upsert(ctx context.Context, assignmentID, studentID uint, payload dto.SubmissionUpsertRequest) (dto.SubmissionResultResponse, error)
	GetOwn(ctx context.Context, assignmentID, studentID uint) (dto.SubmissionResultResponse, error)
}

type submissionService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	events      EventPublisher
	cache       ResultCache
	policy      SubmissionPolicy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	validator *validator.Validate,
	events EventPublisher,
	cache ResultCache,
	policy SubmissionPolicy,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		assignments: assignments,
		submissions: submissions,
		validator:   validator,
		events:      events,
		cache:       cache,
		policy:      policy,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/submission"),
		now:         time.Now,
	}
}

func (s *submissionService) Upsert(ctx context.Context, assignmentID, studentID uint, payload dto.SubmissionUpsertRequest) (dto.SubmissionResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.upsert", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(assignmentID)),
		attribute.Int64("submission.student_id", int64(studentID)),
		attribute.Bool("submission.final", payload.IsFinal),
	))
	defer span.End()

	fail := func(err error, status string) (dto.SubmissionResultResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.SubmissionResultResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return fail(err, "validation_failed")
	}

	assignment, err := loadVisibleAssignment(ctx, s.assignments, assignmentID, studentID)
	if err != nil {
		return fail(err, "assignment_unavailable")
	}

	answers, err := collectAnswers(assignment, payload.Answers)
	if err != nil {
		return fail(err, "validation_failed")
	}

	now := s.now().UTC()
	if s.policy.EnforceDeadline && !assessment.AcceptsSubmissions(now, assignment, s.policy.DeadlineGrace) {
		return fail(ErrSubmissionWindowClosed, "window_closed")
	}

	var grade *float64
	if payload.IsFinal {
		evaluation := assessment.Evaluate(assignment, answers)
		answers = assessment.Annotate(answers, evaluation)
		grade = assessment.AutoGrade(assignment, answers)

		outcome := "manual"
		if grade != nil {
			outcome = "graded"
			span.SetAttributes(attribute.Float64("submission.grade", *grade))
		}
		observability.AutoGrades().WithLabelValues(outcome).Inc()
	}

	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Grade:        grade,
		IsFinal:      payload.IsFinal,
		SubmittedAt:  now,
		TimeTakenMs:  payload.TimeTakenMs,
	}
	submission.SetAnswers(answers)
	if len(payload.TestCaseResults) > 0 && string(payload.TestCaseResults) != "null" {
		submission.TestCaseResults = datatypes.JSON(payload.TestCaseResults)
	}

	if err := s.submissions.Upsert(ctx, &submission); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", assignmentID).Uint("student_id", studentID).Msg("failed to upsert submission")
		return fail(err, "upsert_failed")
	}

	if s.cache != nil {
		s.cache.InvalidateAssignment(ctx, assignmentID)
		s.cache.InvalidateStudent(ctx, studentID)
	}

	observability.Submissions().WithLabelValues(assignment.Mode, strconv.FormatBool(submission.IsFinal)).Inc()

	if submission.IsFinal {
		submissionID := submission.ID
		student := studentID
		publishEvent(ctx, s.events, s.logger, DomainEvent{
			Type:         EventSubmissionFinalized,
			AssignmentID: assignmentID,
			SubmissionID: &submissionID,
			StudentID:    &student,
			Grade:        submission.Grade,
		})
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("student_id", studentID).
		Uint("submission_id", submission.ID).
		Bool("final", submission.IsFinal).
		Msg("submission saved")

	return s.result(now, assignment, submission), nil
}

func (s *submissionService) GetOwn(ctx context.Context, assignmentID, studentID uint) (dto.SubmissionResultResponse, error) {
	assignment, err := loadVisibleAssignment(ctx, s.assignments, assignmentID, studentID)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}

	submission, err := findSubmission(ctx, s.submissions, assignmentID, studentID)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}
	if submission == nil {
		return dto.SubmissionResultResponse{}, ErrSubmissionNotFound
	}

	return s.result(s.now(), assignment, *submission), nil
}

func (s *submissionService) result(now time.Time, assignment models.Assignment, submission models.Submission) dto.SubmissionResultResponse {
	return dto.SubmissionResultResponse{
		Submission:        dto.NewSubmissionResponse(submission),
		Status:            string(assessment.DeriveStatus(now, assignment, &submission)),
		MaxScore:          assessment.MaxScore(assignment),
		ExceededTimeLimit: assessment.ExceededTimeLimit(assignment, submission.TimeTakenMs),
	}
}

// collectAnswers checks that every answer targets a question of the assignment
// and keeps the last answer given per question, in assignment order.
func collectAnswers(assignment models.Assignment, payload []dto.SubmissionAnswerPayload) ([]models.SubmissionAnswer, error) {
	known := make(map[uint]struct{}, len(assignment.Items))
	for _, id := range assignment.QuestionIDs() {
		known[id] = struct{}{}
	}

	latest := make(map[uint]interface{}, len(payload))
	for i, answer := range payload {
		if _, ok := known[answer.QuestionID]; !ok {
			return nil, fieldError(fmt.Sprintf("answers[%d].question_id", i), "question %d is not part of this assignment", answer.QuestionID)
		}
		latest[answer.QuestionID] = answer.Response
	}

	answers := make([]models.SubmissionAnswer, 0, len(latest))
	for _, id := range assignment.QuestionIDs() {
		if response, ok := latest[id]; ok {
			answers = append(answers, models.SubmissionAnswer{QuestionID: id, Response: response})
		}
	}
	return answers, nil
}
