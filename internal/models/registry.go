package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Question{},
		&Assignment{},
		&AssignmentQuestion{},
		&AssignmentRecipient{},
		&Submission{},
		&SubmissionGradeHistory{},
		&ActivityLog{},
	}
}
