package assessment

import (
	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// Evaluation is the outcome of checking a set of answers against an assignment.
type Evaluation struct {
	Correct int
	Max     int
	// Outcome holds the correctness of every objective question, keyed by question id.
	Outcome map[uint]bool
}

// Evaluate checks every objective question of the assignment, in order, against
// the answers. Missing or malformed responses count as incorrect. Evaluate never
// fails.
func Evaluate(assignment models.Assignment, answers []models.SubmissionAnswer) Evaluation {
	responses := make(map[uint]interface{}, len(answers))
	for _, answer := range answers {
		responses[answer.QuestionID] = answer.Response
	}

	result := Evaluation{Outcome: make(map[uint]bool)}
	for _, question := range assignment.Questions() {
		if !question.IsObjective() {
			continue
		}
		result.Max++

		response, ok := responses[question.ID]
		correct := ok && IsCorrect(question, response)
		result.Outcome[question.ID] = correct
		if correct {
			result.Correct++
		}
	}

	return result
}

// AutoGrade returns the number of correctly answered objective questions, or
// nil when the assignment contains questions that need manual grading.
func AutoGrade(assignment models.Assignment, answers []models.SubmissionAnswer) *float64 {
	if assignment.RequiresManualGrading() {
		return nil
	}

	grade := float64(Evaluate(assignment, answers).Correct)
	return &grade
}

// MaxScore is the number of auto-gradable questions in the assignment.
func MaxScore(assignment models.Assignment) int {
	total := 0
	for _, question := range assignment.Questions() {
		if question.IsObjective() {
			total++
		}
	}
	return total
}

// Annotate copies the per-question outcome onto the answers. Answers to
// questions outside the evaluation are left untouched.
func Annotate(answers []models.SubmissionAnswer, evaluation Evaluation) []models.SubmissionAnswer {
	annotated := make([]models.SubmissionAnswer, len(answers))
	for idx, answer := range answers {
		if correct, ok := evaluation.Outcome[answer.QuestionID]; ok {
			value := correct
			answer.IsCorrect = &value
		}
		annotated[idx] = answer
	}
	return annotated
}

// IsCorrect checks a single response against an objective question.
func IsCorrect(question models.Question, response interface{}) bool {
	correct := question.CorrectAnswerList()

	switch question.Type {
	case models.QuestionTypeMCQ:
		if len(correct) != 1 {
			return false
		}
		value, ok := response.(string)
		return ok && value == correct[0]
	case models.QuestionTypeMSQ:
		values, ok := toStringSlice(response)
		if !ok || len(values) != len(correct) {
			return false
		}
		return equalStringSets(values, correct)
	default:
		return false
	}
}

func toStringSlice(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// equalStringSets compares a and b as sets; a duplicate in a never stands in for
// a missing member of b.
func equalStringSets(a, b []string) bool {
	want := make(map[string]struct{}, len(b))
	for _, s := range b {
		want[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := want[s]; !ok {
			return false
		}
		seen[s] = struct{}{}
	}

	return len(seen) == len(want)
}
