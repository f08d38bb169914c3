package dto

import "time"

// GradeDistributionResponse buckets graded submissions by percentage of the max score.
type GradeDistributionResponse map[string]int64

// QuestionStat summarises how students answered one objective question.
type QuestionStat struct {
	QuestionID  uint    `json:"question_id"`
	Attempts    int64   `json:"attempts"`
	Correct     int64   `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
}

// AssignmentAnalyticsResponse aggregates the submissions of one assignment for mentors.
type AssignmentAnalyticsResponse struct {
	AssignmentID      uint                      `json:"assignment_id"`
	MaxScore          int                       `json:"max_score"`
	Submissions       int64                     `json:"submissions"`
	FinalSubmissions  int64                     `json:"final_submissions"`
	PendingReview     int64                     `json:"pending_review"`
	OnTimeSubmissions int64                     `json:"on_time_submissions"`
	LateSubmissions   int64                     `json:"late_submissions"`
	AverageGrade      *float64                  `json:"average_grade"`
	GradeDistribution GradeDistributionResponse `json:"grade_distribution"`
	Questions         []QuestionStat            `json:"questions"`
	GeneratedAt       time.Time                 `json:"generated_at"`
	CacheHit          bool                      `json:"cache_hit"`
}
