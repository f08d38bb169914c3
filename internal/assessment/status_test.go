package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

func TestDeriveStatusWithoutSubmission(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		start *time.Time
		due   *time.Time
		want  Status
	}{
		{name: "no schedule", want: StatusPending},
		{name: "future start", start: at(now.Add(time.Hour)), want: StatusUpcoming},
		{name: "future start overrides past due", start: at(now.Add(time.Hour)), due: at(now.Add(-time.Hour)), want: StatusUpcoming},
		{name: "past due", due: at(now.Add(-time.Minute)), want: StatusClosed},
		{name: "past start and past due", start: at(now.Add(-2 * time.Hour)), due: at(now.Add(-time.Hour)), want: StatusClosed},
		{name: "open window", start: at(now.Add(-time.Hour)), due: at(now.Add(time.Hour)), want: StatusPending},
		{name: "due exactly now", due: at(now), want: StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assignment := assignmentWith(mcq(1, "A"))
			assignment.StartDate = tc.start
			assignment.DueDate = tc.due
			require.Equal(t, tc.want, DeriveStatus(now, assignment, nil))
		})
	}
}

func TestDeriveStatusWithSubmission(t *testing.T) {
	now := time.Now()
	pastDue := at(now.Add(-time.Hour))

	withDescriptive := assignmentWith(mcq(1, "A"), descriptive(2))
	withDescriptive.DueDate = pastDue
	objectiveOnly := assignmentWith(mcq(1, "A"))
	objectiveOnly.DueDate = pastDue

	draft := &models.Submission{IsFinal: false}
	final := &models.Submission{IsFinal: true}

	require.Equal(t, StatusPendingReview, DeriveStatus(now, withDescriptive, draft))
	require.Equal(t, StatusCompleted, DeriveStatus(now, withDescriptive, final))
	require.Equal(t, StatusCompleted, DeriveStatus(now, objectiveOnly, draft))
	require.Equal(t, StatusCompleted, DeriveStatus(now, objectiveOnly, final))
}

func TestDeriveStatusIgnoresScheduleOnceSubmitted(t *testing.T) {
	now := time.Now()
	assignment := assignmentWith(descriptive(1))
	assignment.StartDate = at(now.Add(time.Hour))

	require.Equal(t, StatusPendingReview, DeriveStatus(now, assignment, &models.Submission{}))
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusPendingReview.Valid())
	require.False(t, Status("archived").Valid())
}

func TestAcceptsSubmissions(t *testing.T) {
	now := time.Now()
	assignment := assignmentWith(mcq(1, "A"))

	require.True(t, AcceptsSubmissions(now, assignment, 0))

	assignment.StartDate = at(now.Add(time.Minute))
	require.False(t, AcceptsSubmissions(now, assignment, time.Hour))

	assignment.StartDate = nil
	assignment.DueDate = at(now.Add(-10 * time.Second))
	require.False(t, AcceptsSubmissions(now, assignment, 0))
	require.True(t, AcceptsSubmissions(now, assignment, 30*time.Second))
}

func TestExceededTimeLimit(t *testing.T) {
	limit := 10
	quiz := assignmentWith(mcq(1, "A"))
	quiz.Mode = models.AssignmentModeQuiz
	quiz.TimeLimitMinutes = &limit

	within := int64(9 * time.Minute / time.Millisecond)
	over := int64(11 * time.Minute / time.Millisecond)

	require.False(t, ExceededTimeLimit(quiz, &within))
	require.True(t, ExceededTimeLimit(quiz, &over))
	require.False(t, ExceededTimeLimit(quiz, nil))

	homework := quiz
	homework.Mode = models.AssignmentModeAssignment
	require.False(t, ExceededTimeLimit(homework, &over))
}
