package assessment

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

func mcq(id uint, correct string) models.Question {
	q := models.Question{ID: id, Type: models.QuestionTypeMCQ}
	q.SetOptions([]models.QuestionOption{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}})
	q.SetCorrectAnswers([]string{correct})
	return q
}

func msq(id uint, correct ...string) models.Question {
	q := models.Question{ID: id, Type: models.QuestionTypeMSQ}
	q.SetOptions([]models.QuestionOption{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}})
	q.SetCorrectAnswers(correct)
	return q
}

func descriptive(id uint) models.Question {
	return models.Question{ID: id, Type: models.QuestionTypeDescriptive}
}

func assignmentWith(questions ...models.Question) models.Assignment {
	assignment := models.Assignment{ID: 1, Mode: models.AssignmentModeAssignment, IsDispatched: true, VisibleToAll: true}
	for idx, q := range questions {
		assignment.Items = append(assignment.Items, models.AssignmentQuestion{
			AssignmentID: assignment.ID,
			QuestionID:   q.ID,
			Position:     idx,
			Question:     q,
		})
	}
	return assignment
}

func at(t time.Time) *time.Time {
	return &t
}
