package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
)

// LeaderboardEntry is one ranked student.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	StudentID   uint    `json:"student_id"`
	StudentName string  `json:"student_name"`
	Grade       float64 `json:"grade"`
}

// LeaderboardResponse ranks the final submissions of an assignment.
type LeaderboardResponse struct {
	AssignmentID uint               `json:"assignment_id"`
	MaxScore     int                `json:"max_score"`
	Entries      []LeaderboardEntry `json:"entries"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// NewLeaderboardEntries converts standings into DTOs.
func NewLeaderboardEntries(standings []assessment.Standing) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(standings))
	for _, standing := range standings {
		entries = append(entries, LeaderboardEntry{
			Rank:        standing.Rank,
			StudentID:   standing.StudentID,
			StudentName: standing.StudentName,
			Grade:       standing.Grade,
		})
	}
	return entries
}
