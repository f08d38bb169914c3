package models

import "strings"

// Roles carried in bearer tokens.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdmin   = "admin"
)

// NormalizeRole lower-cases a role claim and folds the legacy "teacher" role into mentor.
func NormalizeRole(role string) string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "teacher" {
		return RoleMentor
	}
	return normalized
}

// IsStaffRole reports whether the role may author and grade assignments.
func IsStaffRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleMentor, RoleAdmin:
		return true
	default:
		return false
	}
}
