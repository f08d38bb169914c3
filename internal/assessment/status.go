// Package assessment holds the pure rules that drive the assignment lifecycle:
// status derivation, automatic grading of objective questions and ranking.
package assessment

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// Status is the effective state of an assignment from a student's point of view.
type Status string

// Derived statuses, in evaluation precedence order.
const (
	StatusUpcoming      Status = "upcoming"
	StatusClosed        Status = "closed"
	StatusPending       Status = "pending"
	StatusPendingReview Status = "pendingReview"
	StatusCompleted     Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusClosed, StatusPending, StatusPendingReview, StatusCompleted:
		return true
	default:
		return false
	}
}

// DeriveStatus computes the status of an assignment for a student.
//
// The first matching rule wins:
//   - upcoming: no submission and now is before the start date
//   - closed: no submission and now is after the due date
//   - pending: no submission otherwise
//   - pendingReview: a non-final submission on an assignment with descriptive questions
//   - completed: any other submission
//
// An existing submission always takes precedence over the schedule. The
// assignment must have its questions loaded for the review rule to apply.
func DeriveStatus(now time.Time, assignment models.Assignment, submission *models.Submission) Status {
	if submission == nil {
		switch {
		case assignment.StartDate != nil && now.Before(*assignment.StartDate):
			return StatusUpcoming
		case assignment.DueDate != nil && now.After(*assignment.DueDate):
			return StatusClosed
		default:
			return StatusPending
		}
	}

	if !submission.IsFinal && assignment.RequiresManualGrading() {
		return StatusPendingReview
	}

	return StatusCompleted
}

// AcceptsSubmissions reports whether a write at now falls inside the
// assignment window, extended by grace after the due date.
func AcceptsSubmissions(now time.Time, assignment models.Assignment, grace time.Duration) bool {
	if assignment.StartDate != nil && now.Before(*assignment.StartDate) {
		return false
	}
	if assignment.DueDate != nil && now.After(assignment.DueDate.Add(grace)) {
		return false
	}
	return true
}

// ExceededTimeLimit reports whether the reported attempt duration is longer
// than the countdown of a time-limited quiz or test.
func ExceededTimeLimit(assignment models.Assignment, timeTakenMs *int64) bool {
	if !assignment.HasTimeLimit() || timeTakenMs == nil {
		return false
	}
	limit := time.Duration(*assignment.TimeLimitMinutes) * time.Minute
	return time.Duration(*timeTakenMs)*time.Millisecond > limit
}
