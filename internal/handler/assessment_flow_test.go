package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/service"
)

func TestAssessmentLifecycle(t *testing.T) {
	a := newTestApp(t)
	mentor := tokenFor(t, 100, "teacher")
	admin := tokenFor(t, 1, "admin")

	studentID := a.createStudent(t, mentor, "uma")
	student := tokenFor(t, studentID, "student")

	q1 := a.createMCQ(t, mentor, "A")
	q2 := a.createMCQ(t, mentor, "B")
	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{
		"title":        "Quiz one",
		"mode":         "quiz",
		"question_ids": []uint{q1, q2},
	})
	base := fmt.Sprintf("/api/v1/assignments/%d", assignmentID)

	status, body := a.do(t, http.MethodGet, "/api/v1/assignments", student, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []dto.StudentAssignmentResponse
	decode(t, body.Data, &listed)
	require.Empty(t, listed)

	status, _ = a.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/assignments/%d/dispatch", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = a.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, http.StatusOK, status)
	var view dto.StudentAssignmentResponse
	decode(t, body.Data, &view)
	require.Equal(t, "pending", view.Status)
	require.Len(t, view.Questions, 2)
	require.Empty(t, view.Questions[0].CorrectAnswers)
	require.Nil(t, view.Submission)

	status, body = a.do(t, http.MethodPut, base+"/submission", student, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": q1, "response": "A"},
			{"question_id": q2, "response": "C"},
		},
		"is_final":      true,
		"time_taken_ms": 42000,
	})
	require.Equal(t, http.StatusOK, status, body.Message)
	require.Equal(t, "submission received", body.Message)
	var result dto.SubmissionResultResponse
	decode(t, body.Data, &result)
	require.Equal(t, "completed", result.Status)
	require.Equal(t, 1.0, *result.Submission.Grade)
	require.Equal(t, 2, result.MaxScore)

	status, body = a.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, http.StatusOK, status)
	decode(t, body.Data, &view)
	require.Equal(t, []string{"A"}, view.Questions[0].CorrectAnswers)
	require.NotNil(t, view.Submission)

	status, body = a.do(t, http.MethodGet, base+"/leaderboard", student, nil)
	require.Equal(t, http.StatusOK, status)
	var board dto.LeaderboardResponse
	decode(t, body.Data, &board)
	require.Len(t, board.Entries, 1)
	require.Equal(t, "uma", board.Entries[0].StudentName)
	require.Equal(t, 1, board.Entries[0].Rank)

	status, body = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/assignments/%d/submissions", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)
	var submissions []dto.SubmissionResponse
	decode(t, body.Data, &submissions)
	require.Len(t, submissions, 1)

	gradePath := fmt.Sprintf("/api/v1/admin/submissions/%d/grade", submissions[0].ID)
	status, body = a.do(t, http.MethodPatch, gradePath, mentor, map[string]interface{}{
		"answers":  []map[string]interface{}{{"question_id": q2, "is_correct": true}},
		"grade":    2,
		"feedback": "nice",
	})
	require.Equal(t, http.StatusOK, status, body.Message)
	var graded dto.SubmissionResponse
	decode(t, body.Data, &graded)
	require.Equal(t, 2.0, *graded.Grade)
	require.Equal(t, "nice", *graded.Feedback)
	require.True(t, *graded.Answers[1].IsCorrect)

	status, body = a.do(t, http.MethodPatch, gradePath, mentor, map[string]interface{}{"grade": "two", "feedback": 5})
	require.Equal(t, http.StatusOK, status, body.Message)
	decode(t, body.Data, &graded)
	require.Equal(t, 2.0, *graded.Grade)
	require.Len(t, graded.History, 2)

	status, body = a.do(t, http.MethodGet, "/api/v1/student/dashboard", student, nil)
	require.Equal(t, http.StatusOK, status)
	var dashboard dto.StudentDashboardResponse
	decode(t, body.Data, &dashboard)
	require.Equal(t, 1, dashboard.Summary.Completed)
	require.Equal(t, 2.0, *dashboard.Summary.AverageGrade)

	status, _ = a.do(t, http.MethodGet, "/api/v1/admin/activities", mentor, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = a.do(t, http.MethodGet, "/api/v1/admin/activities?entity_type=assignment", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var activities []dto.ActivityResponse
	decode(t, body.Data, &activities)
	require.Len(t, activities, 2)
}

func TestAccessControl(t *testing.T) {
	a := newTestApp(t)
	student := tokenFor(t, 5, "student")

	status, _ := a.do(t, http.MethodGet, "/api/v1/questions", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(t, http.MethodGet, "/api/v1/questions", student, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodPost, "/api/v1/admin/assignments", student, map[string]string{"title": "nope"})
	require.Equal(t, http.StatusForbidden, status)

	for _, staff := range []string{tokenFor(t, 100, "mentor"), tokenFor(t, 1, "admin")} {
		status, _ = a.do(t, http.MethodPut, "/api/v1/assignments/1/submission", staff, map[string]interface{}{
			"answers":  []map[string]interface{}{{"question_id": 1, "response": "A"}},
			"is_final": true,
		})
		require.Equal(t, http.StatusForbidden, status)
	}

	var count int64
	require.NoError(t, a.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)

	status, body := a.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)
}

func TestAdminAssignmentListReportsScoring(t *testing.T) {
	a := newTestApp(t)
	mentor := tokenFor(t, 100, "mentor")

	mcq := a.createMCQ(t, mentor, "A")
	status, body := a.do(t, http.MethodPost, "/api/v1/questions", mentor, map[string]interface{}{
		"type":    "descriptive",
		"content": "Explain interfaces",
	})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var essay created
	decode(t, body.Data, &essay)

	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{
		"title":        "Mixed",
		"question_ids": []uint{mcq, essay.ID},
	})

	status, body = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/assignments/%d", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)
	var detail dto.AssignmentResponse
	decode(t, body.Data, &detail)

	status, body = a.do(t, http.MethodGet, "/api/v1/admin/assignments", mentor, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []dto.AssignmentResponse
	decode(t, body.Data, &listed)
	require.Len(t, listed, 1)

	require.Equal(t, 2, listed[0].QuestionCount)
	require.Equal(t, 1, listed[0].MaxScore)
	require.True(t, listed[0].RequiresManualGrading)
	require.Equal(t, detail.MaxScore, listed[0].MaxScore)
	require.Equal(t, detail.RequiresManualGrading, listed[0].RequiresManualGrading)
}

func TestErrorMapping(t *testing.T) {
	a := newTestApp(t)
	mentor := tokenFor(t, 100, "mentor")
	admin := tokenFor(t, 1, "admin")

	status, body := a.do(t, http.MethodPost, "/api/v1/questions", mentor, map[string]interface{}{"type": "essay", "content": "x"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body.Details, "type")

	status, body = a.do(t, http.MethodPost, "/api/v1/questions", mentor, map[string]interface{}{
		"type":            "mcq",
		"content":         "x",
		"options":         []map[string]string{{"id": "A", "text": "a"}, {"id": "B", "text": "b"}},
		"correct_answers": []string{"Z"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body.Details, "correct_answers[0]")

	status, _ = a.do(t, http.MethodGet, "/api/v1/questions/999", mentor, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodGet, "/api/v1/questions/abc", mentor, nil)
	require.Equal(t, http.StatusBadRequest, status)

	q1 := a.createMCQ(t, mentor, "A")
	adminOwned := a.createAssignment(t, admin, map[string]interface{}{"title": "Admin quiz", "question_ids": []uint{q1}})
	status, _ = a.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/assignments/%d", adminOwned), mentor, map[string]string{"title": "Taken over"})
	require.Equal(t, http.StatusForbidden, status)

	status, body = a.do(t, http.MethodPost, "/api/v1/admin/assignments", mentor, map[string]interface{}{
		"title":        "Broken",
		"question_ids": []uint{q1, 4040},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body.Details, "question_ids[1]")
}

func TestSubmissionWindowConflict(t *testing.T) {
	a := newTestApp(t)
	mentor := tokenFor(t, 100, "mentor")
	studentID := a.createStudent(t, mentor, "vic")
	student := tokenFor(t, studentID, "student")

	q1 := a.createMCQ(t, mentor, "A")
	due := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	start := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{
		"title":        "Past due",
		"question_ids": []uint{q1},
		"start_date":   start,
		"due_date":     due,
	})
	status, _ := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/assignments/%d/dispatch", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", assignmentID), student, nil)
	require.Equal(t, http.StatusOK, status)
	var view dto.StudentAssignmentResponse
	decode(t, body.Data, &view)
	require.Equal(t, "closed", view.Status)

	submission := map[string]interface{}{
		"answers":  []map[string]interface{}{{"question_id": q1, "response": "A"}},
		"is_final": true,
	}
	status, _ = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/assignments/%d/submission", assignmentID), student, submission)
	require.Equal(t, http.StatusConflict, status)

	relaxed := newTestAppWithPolicy(t, service.SubmissionPolicy{})
	status, _ = relaxed.do(t, http.MethodPut, "/api/v1/assignments/1/submission", student, submission)
	require.Equal(t, http.StatusNotFound, status)
}

func TestSubmissionRejectsForeignQuestion(t *testing.T) {
	a := newTestApp(t)
	mentor := tokenFor(t, 100, "mentor")
	studentID := a.createStudent(t, mentor, "wes")
	student := tokenFor(t, studentID, "student")

	q1 := a.createMCQ(t, mentor, "A")
	q2 := a.createMCQ(t, mentor, "B")
	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{"title": "Only one", "question_ids": []uint{q1}})
	status, _ := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/assignments/%d/dispatch", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)

	path := fmt.Sprintf("/api/v1/assignments/%d/submission", assignmentID)
	status, body := a.do(t, http.MethodPut, path, student, map[string]interface{}{
		"answers": []map[string]interface{}{{"question_id": q2, "response": "B"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body.Details, "answers[0].question_id")

	status, _ = a.do(t, http.MethodGet, path, student, nil)
	require.Equal(t, http.StatusNotFound, status)
}
