package handler_test

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
)

func seedRankedAssignment(t *testing.T, a *testApp, students int) (uint, string) {
	t.Helper()
	mentor := tokenFor(t, 100, "mentor")

	q1 := a.createMCQ(t, mentor, "A")
	q2 := a.createMCQ(t, mentor, "B")
	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{
		"title":        "Load quiz",
		"mode":         "quiz",
		"question_ids": []uint{q1, q2},
	})
	status, _ := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/assignments/%d/dispatch", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)

	picks := []string{"B", "C"}
	for idx := 0; idx < students; idx++ {
		studentID := a.createStudent(t, mentor, fmt.Sprintf("load-%d", idx))
		status, body := a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/assignments/%d/submission", assignmentID), tokenFor(t, studentID, "student"), map[string]interface{}{
			"answers": []map[string]interface{}{
				{"question_id": q1, "response": "A"},
				{"question_id": q2, "response": picks[idx%len(picks)]},
			},
			"is_final": true,
		})
		require.Equal(t, http.StatusOK, status, body.Message)
	}

	return assignmentID, mentor
}

func p95(durations []time.Duration) time.Duration {
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	return durations[index]
}

func TestLeaderboardP95LatencyBelow250ms(t *testing.T) {
	a := newTestApp(t)
	assignmentID, mentor := seedRankedAssignment(t, a, 40)
	path := fmt.Sprintf("/api/v1/assignments/%d/leaderboard", assignmentID)

	runs := 40
	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		status, body := a.do(t, http.MethodGet, path, mentor, nil)
		durations = append(durations, time.Since(start))
		require.Equal(t, http.StatusOK, status)

		if i == 0 {
			var board dto.LeaderboardResponse
			decode(t, body.Data, &board)
			require.Len(t, board.Entries, 40)
			require.Equal(t, 1, board.Entries[0].Rank)
			require.Equal(t, 21, board.Entries[20].Rank)
		}
	}

	require.LessOrEqual(t, p95(durations), 250*time.Millisecond)
}

func TestAssignmentAnalyticsP95LatencyBelow250ms(t *testing.T) {
	a := newTestApp(t)
	assignmentID, mentor := seedRankedAssignment(t, a, 40)
	path := fmt.Sprintf("/api/v1/admin/analytics/assignments/%d", assignmentID)

	runs := 40
	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		status, body := a.do(t, http.MethodGet, path, mentor, nil)
		durations = append(durations, time.Since(start))
		require.Equal(t, http.StatusOK, status)

		if i == 0 {
			var summary dto.AssignmentAnalyticsResponse
			decode(t, body.Data, &summary)
			require.EqualValues(t, 40, summary.FinalSubmissions)
			require.InDelta(t, 1.5, *summary.AverageGrade, 0.0001)
		}
	}

	require.LessOrEqual(t, p95(durations), 250*time.Millisecond)
}
