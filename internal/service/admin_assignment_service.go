package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// ErrAssignmentNotFound indicates the assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrAssignmentOwnership indicates the actor may not modify an assignment created by another role.
var ErrAssignmentOwnership = errors.New("assignment belongs to another role")

// AdminAssignmentService manages assignment authoring and dispatch for mentors and admins.
type AdminAssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor ActivityActor) (dto.AssignmentResponse, error)
	List(ctx context.Context, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor ActivityActor) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	Dispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error)
	Undispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error)
}

type adminAssignmentService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	students    repository.StudentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	events      EventPublisher
	cache       ResultCache
	logger      zerolog.Logger
	richText    *bluemonday.Policy
	plainText   *bluemonday.Policy
	now         func() time.Time
}

// NewAdminAssignmentService constructs the assignment authoring service.
func NewAdminAssignmentService(
	assignments repository.AssignmentRepository,
	questions repository.QuestionRepository,
	students repository.StudentRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	events EventPublisher,
	cache ResultCache,
	logger zerolog.Logger,
) AdminAssignmentService {
	return &adminAssignmentService{
		assignments: assignments,
		questions:   questions,
		students:    students,
		validator:   validator,
		activity:    activity,
		events:      events,
		cache:       cache,
		logger:      logger.With().Str("component", "admin_assignment_service").Logger(),
		richText:    bluemonday.UGCPolicy(),
		plainText:   bluemonday.StrictPolicy(),
		now:         time.Now,
	}
}

func (s *adminAssignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor ActivityActor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:         strings.TrimSpace(s.plainText.Sanitize(payload.Title)),
		Description:   strings.TrimSpace(s.richText.Sanitize(payload.Description)),
		Mode:          payload.Mode,
		VisibleToAll:  true,
		CreatedBy:     actor.ID,
		CreatedByRole: models.NormalizeRole(actor.Role),
	}
	if assignment.Mode == "" {
		assignment.Mode = models.AssignmentModeAssignment
	}
	if payload.VisibleToAll != nil {
		assignment.VisibleToAll = *payload.VisibleToAll
	}
	if payload.TimeLimitMinutes != nil {
		limit := *payload.TimeLimitMinutes
		assignment.TimeLimitMinutes = &limit
	}

	var err error
	if assignment.StartDate, err = parseOptionalTime("start_date", payload.StartDate); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.DueDate, err = parseOptionalTime("due_date", payload.DueDate); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := validateWindow(assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if assignment.Items, err = s.resolveItems(ctx, payload.QuestionIDs); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.Recipients, err = s.resolveRecipients(ctx, payload.VisibleTo); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		s.logger.Error().Err(err).Msg("failed to create assignment")
		return dto.AssignmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssignmentCreated,
		EntityType: "assignment",
		EntityID:   &assignment.ID,
		Metadata: map[string]interface{}{
			"mode":           assignment.Mode,
			"question_count": len(assignment.Items),
		},
	})

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("mode", assignment.Mode).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *adminAssignmentService) List(ctx context.Context, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	assignments, total, err := s.assignments.ListWithFilter(ctx, repository.AssignmentFilter{
		Search:     req.Search,
		Mode:       req.Mode,
		Dispatched: req.Dispatched,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *adminAssignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *adminAssignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor ActivityActor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	changed := make([]string, 0)

	if payload.Title != nil {
		assignment.Title = strings.TrimSpace(s.plainText.Sanitize(*payload.Title))
		changed = append(changed, "title")
	}
	if payload.Description != nil {
		assignment.Description = strings.TrimSpace(s.richText.Sanitize(*payload.Description))
		changed = append(changed, "description")
	}
	if payload.Mode != nil {
		assignment.Mode = *payload.Mode
		changed = append(changed, "mode")
	}
	if payload.VisibleToAll != nil {
		assignment.VisibleToAll = *payload.VisibleToAll
		changed = append(changed, "visible_to_all")
	}
	if payload.StartDate != nil {
		if assignment.StartDate, err = parseOptionalTime("start_date", payload.StartDate); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "start_date")
	}
	if payload.DueDate != nil {
		if assignment.DueDate, err = parseOptionalTime("due_date", payload.DueDate); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "due_date")
	}
	if payload.TimeLimitMinutes != nil {
		if *payload.TimeLimitMinutes == 0 {
			assignment.TimeLimitMinutes = nil
		} else {
			limit := *payload.TimeLimitMinutes
			assignment.TimeLimitMinutes = &limit
		}
		changed = append(changed, "time_limit_minutes")
	}
	if err := validateWindow(assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	replaceItems := payload.QuestionIDs != nil
	if replaceItems {
		if assignment.Items, err = s.resolveItems(ctx, *payload.QuestionIDs); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "question_ids")
	}

	replaceRecipients := payload.VisibleTo != nil
	if replaceRecipients {
		if assignment.Recipients, err = s.resolveRecipients(ctx, *payload.VisibleTo); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "visible_to")
	}

	if err := s.assignments.Update(ctx, &assignment, replaceItems, replaceRecipients); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", id).Msg("failed to update assignment")
		return dto.AssignmentResponse{}, err
	}

	if replaceItems && s.cache != nil {
		s.cache.InvalidateAssignment(ctx, id)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssignmentUpdated,
		EntityType: "assignment",
		EntityID:   &assignment.ID,
		Metadata:   map[string]interface{}{"changed_fields": changed},
	})

	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *adminAssignmentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if _, err := s.loadOwned(ctx, id, actor); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateAssignment(ctx, id)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssignmentDeleted,
		EntityType: "assignment",
		EntityID:   &id,
	})

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *adminAssignmentService) Dispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error) {
	return s.setDispatch(ctx, id, true, actor)
}

func (s *adminAssignmentService) Undispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error) {
	return s.setDispatch(ctx, id, false, actor)
}

func (s *adminAssignmentService) setDispatch(ctx context.Context, id uint, dispatched bool, actor ActivityActor) (dto.AssignmentResponse, error) {
	assignment, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	var at *time.Time
	action := models.ActionAssignmentUndispatched
	event := EventAssignmentUndispatched
	if dispatched {
		now := s.now().UTC()
		at = &now
		action = models.ActionAssignmentDispatched
		event = EventAssignmentDispatched
	}

	if err := s.assignments.SetDispatch(ctx, id, dispatched, at); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	assignment.IsDispatched = dispatched
	assignment.DispatchDate = at

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "assignment",
		EntityID:   &assignment.ID,
	})

	actorID := actor.ID
	domainEvent := DomainEvent{
		Type:         event,
		AssignmentID: assignment.ID,
		ActorID:      &actorID,
	}
	if !assignment.VisibleToAll {
		domainEvent.Recipients = assignment.RecipientIDs()
	}
	publishEvent(ctx, s.events, s.logger, domainEvent)

	s.logger.Info().Uint("assignment_id", id).Bool("dispatched", dispatched).Msg("assignment dispatch state changed")
	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *adminAssignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

// loadOwned loads the assignment and checks that the actor may modify it:
// admins always may, others only when they share the creator's role.
func (s *adminAssignmentService) loadOwned(ctx context.Context, id uint, actor ActivityActor) (models.Assignment, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}

	if actor.IsAdmin() || assignment.CreatedByRole == "" {
		return assignment, nil
	}
	if models.NormalizeRole(assignment.CreatedByRole) != models.NormalizeRole(actor.Role) {
		return models.Assignment{}, ErrAssignmentOwnership
	}
	return assignment, nil
}

func (s *adminAssignmentService) resolveItems(ctx context.Context, ids []uint) ([]models.AssignmentQuestion, error) {
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	seen := make(map[uint]struct{}, len(ids))
	items := make([]models.AssignmentQuestion, 0, len(ids))
	for i, id := range ids {
		field := fmt.Sprintf("question_ids[%d]", i)
		if _, dup := seen[id]; dup {
			return nil, fieldError(field, "question %d is listed twice", id)
		}
		seen[id] = struct{}{}

		question, ok := byID[id]
		if !ok {
			return nil, fieldError(field, "question %d does not exist", id)
		}
		items = append(items, models.AssignmentQuestion{QuestionID: id, Position: i, Question: question})
	}

	return items, nil
}

func (s *adminAssignmentService) resolveRecipients(ctx context.Context, ids []uint) ([]models.AssignmentRecipient, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) == 0 {
		return []models.AssignmentRecipient{}, nil
	}

	count, err := s.students.CountExisting(ctx, unique)
	if err != nil {
		return nil, err
	}
	if count != int64(len(unique)) {
		return nil, fieldError("visible_to", "contains unknown student ids")
	}

	recipients := make([]models.AssignmentRecipient, 0, len(unique))
	for _, id := range unique {
		recipients = append(recipients, models.AssignmentRecipient{StudentID: id})
	}
	return recipients, nil
}

func parseOptionalTime(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, fieldError(field, "must be an RFC3339 timestamp")
	}
	utc := parsed.UTC()
	return &utc, nil
}

func validateWindow(assignment models.Assignment) error {
	if assignment.StartDate != nil && assignment.DueDate != nil && !assignment.DueDate.After(*assignment.StartDate) {
		return fieldError("due_date", "must be after start_date")
	}
	return nil
}
