package assessment

import (
	"sort"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// Standing is one row of an assignment leaderboard.
type Standing struct {
	StudentID   uint
	StudentName string
	Grade       float64
	Rank        int
	SubmittedAt time.Time
}

// Rank orders the final, graded submissions by grade descending. Equal grades
// share a rank and the next distinct grade takes its 1-based position, so
// [90 90 80] ranks as [1 1 3]. Ungraded and draft submissions are skipped.
func Rank(submissions []models.Submission) []Standing {
	standings := make([]Standing, 0, len(submissions))
	for _, submission := range submissions {
		if !submission.IsFinal || submission.Grade == nil {
			continue
		}
		standings = append(standings, Standing{
			StudentID:   submission.StudentID,
			StudentName: submission.Student.Name,
			Grade:       *submission.Grade,
			SubmittedAt: submission.SubmittedAt,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Grade != standings[j].Grade {
			return standings[i].Grade > standings[j].Grade
		}
		if !standings[i].SubmittedAt.Equal(standings[j].SubmittedAt) {
			return standings[i].SubmittedAt.Before(standings[j].SubmittedAt)
		}
		return standings[i].StudentID < standings[j].StudentID
	})

	for idx := range standings {
		if idx > 0 && standings[idx].Grade == standings[idx-1].Grade {
			standings[idx].Rank = standings[idx-1].Rank
			continue
		}
		standings[idx].Rank = idx + 1
	}

	return standings
}
