package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// QuestionOptionPayload describes a selectable option.
type QuestionOptionPayload struct {
	ID   string `json:"id" validate:"required,max=32"`
	Text string `json:"text" validate:"required"`
}

// QuestionTestCasePayload describes an input/expected pair.
type QuestionTestCasePayload struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// QuestionCreateRequest describes the payload for authoring a question.
type QuestionCreateRequest struct {
	Type           string                    `json:"type" validate:"required,oneof=mcq msq descriptive image"`
	Content        string                    `json:"content" validate:"required"`
	Options        []QuestionOptionPayload   `json:"options" validate:"omitempty,dive"`
	CorrectAnswers []string                  `json:"correct_answers" validate:"omitempty,dive,required"`
	TestCases      []QuestionTestCasePayload `json:"test_cases" validate:"omitempty,dive"`
	Explanation    string                    `json:"explanation"`
	Topics         []string                  `json:"topics" validate:"omitempty,dive,required,max=64"`
	Difficulty     string                    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// QuestionUpdateRequest lists every mutable question field.
type QuestionUpdateRequest struct {
	Type           *string                    `json:"type" validate:"omitempty,oneof=mcq msq descriptive image"`
	Content        *string                    `json:"content" validate:"omitempty,min=1"`
	Options        *[]QuestionOptionPayload   `json:"options" validate:"omitempty,dive"`
	CorrectAnswers *[]string                  `json:"correct_answers" validate:"omitempty,dive,required"`
	TestCases      *[]QuestionTestCasePayload `json:"test_cases" validate:"omitempty,dive"`
	Explanation    *string                    `json:"explanation"`
	Topics         *[]string                  `json:"topics" validate:"omitempty,dive,required,max=64"`
	Difficulty     *string                    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// QuestionListRequest carries question bank filters.
type QuestionListRequest struct {
	Type       string `validate:"omitempty,oneof=mcq msq descriptive image"`
	Topic      string
	Difficulty string `validate:"omitempty,oneof=easy medium hard"`
	Search     string
	Page       int
	PageSize   int
}

// QuestionResponse is the serialized representation of a question.
type QuestionResponse struct {
	ID             uint                      `json:"id"`
	Type           string                    `json:"type"`
	Content        string                    `json:"content"`
	Options        []QuestionOptionPayload   `json:"options"`
	CorrectAnswers []string                  `json:"correct_answers,omitempty"`
	TestCases      []QuestionTestCasePayload `json:"test_cases,omitempty"`
	Explanation    string                    `json:"explanation,omitempty"`
	Topics         []string                  `json:"topics"`
	Difficulty     string                    `json:"difficulty"`
	CreatedBy      uint                      `json:"created_by,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// QuestionListResponse wraps a page of questions.
type QuestionListResponse struct {
	Items      []QuestionResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewQuestionResponse converts a model into a DTO. Answer keys, explanations and
// test cases are only included when withAnswers is set.
func NewQuestionResponse(model models.Question, withAnswers bool) QuestionResponse {
	options := make([]QuestionOptionPayload, 0)
	for _, option := range model.OptionList() {
		options = append(options, QuestionOptionPayload{ID: option.ID, Text: option.Text})
	}

	topics := model.TopicList()
	if topics == nil {
		topics = []string{}
	}

	response := QuestionResponse{
		ID:         model.ID,
		Type:       model.Type,
		Content:    model.Content,
		Options:    options,
		Topics:     topics,
		Difficulty: model.Difficulty,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}

	if withAnswers {
		response.CorrectAnswers = model.CorrectAnswerList()
		response.Explanation = model.Explanation
		response.CreatedBy = model.CreatedBy
		for _, tc := range model.TestCaseList() {
			response.TestCases = append(response.TestCases, QuestionTestCasePayload{Input: tc.Input, Expected: tc.Expected})
		}
	}

	return response
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(questions []models.Question, withAnswers bool) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question, withAnswers))
	}
	return responses
}
