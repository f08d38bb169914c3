package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Question types understood by the platform.
const (
	QuestionTypeMCQ         = "mcq"
	QuestionTypeMSQ         = "msq"
	QuestionTypeDescriptive = "descriptive"
	QuestionTypeImage       = "image"
)

// Question difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// QuestionOption is a selectable choice of an mcq/msq question.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionTestCase pairs an input with its expected output for coding-style prompts.
type QuestionTestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Question is an authored question that assignments reference by id.
type Question struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Type           string         `gorm:"size:32;not null;index" json:"type"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Options        datatypes.JSON `gorm:"type:json" json:"-"`
	CorrectAnswers datatypes.JSON `gorm:"type:json" json:"-"`
	TestCases      datatypes.JSON `gorm:"type:json" json:"-"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	Topics         datatypes.JSON `gorm:"type:json" json:"-"`
	Difficulty     string         `gorm:"size:16;index" json:"difficulty"`
	CreatedBy      uint           `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsObjective reports whether the question can be graded automatically.
func (q Question) IsObjective() bool {
	return q.Type == QuestionTypeMCQ || q.Type == QuestionTypeMSQ
}

// RequiresManualGrading reports whether a mentor has to review answers to this question.
func (q Question) RequiresManualGrading() bool {
	return q.Type == QuestionTypeDescriptive
}

// SetOptions serializes the option list into the JSON column.
func (q *Question) SetOptions(options []QuestionOption) {
	q.Options = marshalJSON(options)
}

// OptionList decodes the stored options.
func (q Question) OptionList() []QuestionOption {
	var options []QuestionOption
	unmarshalJSON(q.Options, &options)
	return options
}

// SetCorrectAnswers serializes the correct option ids.
func (q *Question) SetCorrectAnswers(ids []string) {
	q.CorrectAnswers = marshalJSON(ids)
}

// CorrectAnswerList decodes the stored correct option ids.
func (q Question) CorrectAnswerList() []string {
	var ids []string
	unmarshalJSON(q.CorrectAnswers, &ids)
	return ids
}

// SetTestCases serializes the test cases.
func (q *Question) SetTestCases(cases []QuestionTestCase) {
	q.TestCases = marshalJSON(cases)
}

// TestCaseList decodes the stored test cases.
func (q Question) TestCaseList() []QuestionTestCase {
	var cases []QuestionTestCase
	unmarshalJSON(q.TestCases, &cases)
	return cases
}

// SetTopics serializes the topic tags.
func (q *Question) SetTopics(topics []string) {
	q.Topics = marshalJSON(topics)
}

// TopicList decodes the stored topic tags.
func (q Question) TopicList() []string {
	var topics []string
	unmarshalJSON(q.Topics, &topics)
	return topics
}

func marshalJSON(value interface{}) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil || string(data) == "null" {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func unmarshalJSON(data datatypes.JSON, target interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, target)
}
