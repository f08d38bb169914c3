package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// ErrQuestionNotFound indicates the question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the question bank.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionCreateRequest, actor ActivityActor) (dto.QuestionResponse, error)
	List(ctx context.Context, req dto.QuestionListRequest) (dto.QuestionListResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type questionService struct {
	repo      repository.QuestionRepository
	validator *validator.Validate
	activity  ActivityRecorder
	cache     ResultCache
	logger    zerolog.Logger
	richText  *bluemonday.Policy
	plainText *bluemonday.Policy
}

// NewQuestionService constructs the question bank service. cache may be nil.
func NewQuestionService(repo repository.QuestionRepository, validator *validator.Validate, activity ActivityRecorder, cache ResultCache, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		cache:     cache,
		logger:    logger.With().Str("component", "question_service").Logger(),
		richText:  bluemonday.UGCPolicy(),
		plainText: bluemonday.StrictPolicy(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest, actor ActivityActor) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		Type:       payload.Type,
		Difficulty: payload.Difficulty,
		CreatedBy:  actor.ID,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}

	if err := s.applyContent(&question, payload.Content, payload.Explanation); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.applyAnswerKey(&question, toOptionModels(payload.Options), payload.CorrectAnswers); err != nil {
		return dto.QuestionResponse{}, err
	}
	question.SetTestCases(toTestCaseModels(payload.TestCases))
	question.SetTopics(normalizeTopics(payload.Topics))

	if err := s.repo.Create(ctx, &question); err != nil {
		s.logger.Error().Err(err).Msg("failed to create question")
		return dto.QuestionResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionQuestionCreated,
		EntityType: "question",
		EntityID:   &question.ID,
		Metadata:   map[string]interface{}{"type": question.Type},
	})

	s.logger.Info().Uint("question_id", question.ID).Str("type", question.Type).Msg("question created")
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) List(ctx context.Context, req dto.QuestionListRequest) (dto.QuestionListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionListResponse{}, err
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	questions, total, err := s.repo.List(ctx, repository.QuestionFilter{
		Type:       req.Type,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Search:     req.Search,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return dto.QuestionListResponse{}, err
	}

	return dto.QuestionListResponse{
		Items:      dto.NewQuestionResponseSlice(questions, true),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *questionService) Get(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	if payload.Type != nil {
		question.Type = *payload.Type
	}
	if payload.Difficulty != nil {
		question.Difficulty = *payload.Difficulty
	}

	content := question.Content
	if payload.Content != nil {
		content = *payload.Content
	}
	explanation := question.Explanation
	if payload.Explanation != nil {
		explanation = *payload.Explanation
	}
	if err := s.applyContent(&question, content, explanation); err != nil {
		return dto.QuestionResponse{}, err
	}

	options := question.OptionList()
	if payload.Options != nil {
		options = toOptionModels(*payload.Options)
	}
	correct := question.CorrectAnswerList()
	if payload.CorrectAnswers != nil {
		correct = *payload.CorrectAnswers
	}
	if err := s.applyAnswerKey(&question, options, correct); err != nil {
		return dto.QuestionResponse{}, err
	}

	if payload.TestCases != nil {
		question.SetTestCases(toTestCaseModels(*payload.TestCases))
	}
	if payload.Topics != nil {
		question.SetTopics(normalizeTopics(*payload.Topics))
	}

	if err := s.repo.Update(ctx, &question); err != nil {
		s.logger.Error().Err(err).Uint("question_id", id).Msg("failed to update question")
		return dto.QuestionResponse{}, err
	}

	s.invalidateAssignments(ctx, s.referencingAssignments(ctx, id))

	s.logger.Info().Uint("question_id", id).Uint("actor_id", actor.ID).Msg("question updated")
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	referenced := s.referencingAssignments(ctx, id)
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	s.invalidateAssignments(ctx, referenced)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionQuestionDeleted,
		EntityType: "question",
		EntityID:   &id,
	})

	s.logger.Info().Uint("question_id", id).Msg("question deleted")
	return nil
}

func (s *questionService) load(ctx context.Context, id uint) (models.Question, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}

func (s *questionService) applyContent(question *models.Question, content, explanation string) error {
	cleaned := strings.TrimSpace(s.richText.Sanitize(content))
	if cleaned == "" {
		return fieldError("content", "must not be empty")
	}
	question.Content = cleaned
	question.Explanation = strings.TrimSpace(s.richText.Sanitize(explanation))
	return nil
}

// applyAnswerKey enforces the option/answer-key shape required by the question type.
func (s *questionService) applyAnswerKey(question *models.Question, options []models.QuestionOption, correct []string) error {
	if !question.IsObjective() {
		question.SetOptions([]models.QuestionOption{})
		question.SetCorrectAnswers([]string{})
		return nil
	}

	if len(options) < 2 {
		return fieldError("options", "%s questions need at least two options", question.Type)
	}

	known := make(map[string]struct{}, len(options))
	cleanedOptions := make([]models.QuestionOption, 0, len(options))
	for i, option := range options {
		id := strings.TrimSpace(option.ID)
		if _, dup := known[id]; dup {
			return fieldError(fmt.Sprintf("options[%d].id", i), "duplicate option id %q", id)
		}
		known[id] = struct{}{}
		cleanedOptions = append(cleanedOptions, models.QuestionOption{
			ID:   id,
			Text: strings.TrimSpace(s.plainText.Sanitize(option.Text)),
		})
	}

	seen := map[string]struct{}{}
	cleanedCorrect := make([]string, 0, len(correct))
	for i, id := range correct {
		id = strings.TrimSpace(id)
		if _, ok := known[id]; !ok {
			return fieldError(fmt.Sprintf("correct_answers[%d]", i), "unknown option id %q", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cleanedCorrect = append(cleanedCorrect, id)
	}

	switch question.Type {
	case models.QuestionTypeMCQ:
		if len(cleanedCorrect) != 1 {
			return fieldError("correct_answers", "mcq questions need exactly one correct option")
		}
	case models.QuestionTypeMSQ:
		if len(cleanedCorrect) == 0 {
			return fieldError("correct_answers", "msq questions need at least one correct option")
		}
	}

	question.SetOptions(cleanedOptions)
	question.SetCorrectAnswers(cleanedCorrect)
	return nil
}

func toOptionModels(payload []dto.QuestionOptionPayload) []models.QuestionOption {
	options := make([]models.QuestionOption, 0, len(payload))
	for _, option := range payload {
		options = append(options, models.QuestionOption{ID: option.ID, Text: option.Text})
	}
	return options
}

func toTestCaseModels(payload []dto.QuestionTestCasePayload) []models.QuestionTestCase {
	cases := make([]models.QuestionTestCase, 0, len(payload))
	for _, tc := range payload {
		cases = append(cases, models.QuestionTestCase{Input: tc.Input, Expected: tc.Expected})
	}
	return cases
}

func normalizeTopics(topics []string) []string {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		normalized = append(normalized, topic)
	}
	return normalized
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// referencingAssignments looks up the assignments whose cached views depend on the question.
func (s *questionService) referencingAssignments(ctx context.Context, questionID uint) []uint {
	if s.cache == nil {
		return nil
	}
	ids, err := s.repo.AssignmentIDs(ctx, questionID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("question_id", questionID).Msg("failed to resolve question references")
		return nil
	}
	return ids
}

func (s *questionService) invalidateAssignments(ctx context.Context, assignmentIDs []uint) {
	if s.cache == nil {
		return
	}
	for _, assignmentID := range assignmentIDs {
		s.cache.InvalidateAssignment(ctx, assignmentID)
	}
}
