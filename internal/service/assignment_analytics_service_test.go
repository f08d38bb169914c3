package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
)

func TestAssignmentAnalyticsSummarisesFinalSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr, client := newTestRedis(t)

	q1 := f.objective(t, models.QuestionTypeMCQ, "A")
	q2 := f.objective(t, models.QuestionTypeMCQ, "B")
	assignment := f.dispatched(t, models.AssignmentModeQuiz, q1, q2)

	submit := newTestSubmissionService(f, SubmissionPolicy{})
	for name, picked := range map[string][2]string{"lia": {"A", "B"}, "max": {"A", "C"}} {
		student := f.student(t, name)
		_, err := submit.Upsert(ctx, assignment.ID, student.ID, dto.SubmissionUpsertRequest{
			Answers: []dto.SubmissionAnswerPayload{
				{QuestionID: q1.ID, Response: picked[0]},
				{QuestionID: q2.ID, Response: picked[1]},
			},
			IsFinal: true,
		})
		require.NoError(t, err)
	}
	drafter := f.student(t, "oli")
	_, err := submit.Upsert(ctx, assignment.ID, drafter.ID, dto.SubmissionUpsertRequest{
		Answers: []dto.SubmissionAnswerPayload{{QuestionID: q1.ID, Response: "B"}},
	})
	require.NoError(t, err)

	svc := NewAssignmentAnalyticsService(f.assignments, f.submissions, client, time.Minute, testLogger())
	summary, err := svc.Summary(ctx, assignment.ID)
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, 2, summary.MaxScore)
	require.EqualValues(t, 3, summary.Submissions)
	require.EqualValues(t, 2, summary.FinalSubmissions)
	require.EqualValues(t, 0, summary.PendingReview)
	require.NotNil(t, summary.AverageGrade)
	require.InDelta(t, 1.5, *summary.AverageGrade, 0.0001)
	require.EqualValues(t, 1, summary.GradeDistribution["90-100"])
	require.EqualValues(t, 1, summary.GradeDistribution["0-59"])

	require.Len(t, summary.Questions, 2)
	require.Equal(t, q1.ID, summary.Questions[0].QuestionID)
	require.EqualValues(t, 2, summary.Questions[0].Correct)
	require.InDelta(t, 1.0, summary.Questions[0].CorrectRate, 0.0001)
	require.Equal(t, q2.ID, summary.Questions[1].QuestionID)
	require.InDelta(t, 0.5, summary.Questions[1].CorrectRate, 0.0001)
	require.True(t, mr.Exists(analyticsCacheKey(assignment.ID)))

	cached, err := svc.Summary(ctx, assignment.ID)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)

	NewResultCache(client, testLogger()).InvalidateAssignment(ctx, assignment.ID)
	require.False(t, mr.Exists(analyticsCacheKey(assignment.ID)))
}

func TestAssignmentAnalyticsCountsPendingReviewAndLateness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	essay := f.descriptive(t)
	assignment := f.dispatched(t, models.AssignmentModeAssignment, essay)
	due := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.db.Model(&models.Assignment{}).Where("id = ?", assignment.ID).Update("due_date", due).Error)

	submit := newTestSubmissionService(f, SubmissionPolicy{})
	student := f.student(t, "ana")
	_, err := submit.Upsert(ctx, assignment.ID, student.ID, dto.SubmissionUpsertRequest{
		Answers: []dto.SubmissionAnswerPayload{{QuestionID: essay.ID, Response: "because"}},
		IsFinal: true,
	})
	require.NoError(t, err)

	svc := NewAssignmentAnalyticsService(f.assignments, f.submissions, nil, 0, testLogger())
	summary, err := svc.Summary(ctx, assignment.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.PendingReview)
	require.EqualValues(t, 1, summary.LateSubmissions)
	require.Nil(t, summary.AverageGrade)
	require.Empty(t, summary.Questions)
}

func TestAssignmentAnalyticsUnknownAssignment(t *testing.T) {
	f := newFixture(t)
	svc := NewAssignmentAnalyticsService(f.assignments, f.submissions, nil, 0, testLogger())

	_, err := svc.Summary(context.Background(), 404)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
