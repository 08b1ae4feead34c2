package auth

import "errors"

// ErrForbidden is returned when a verified identity may not perform an action.
var ErrForbidden = errors.New("forbidden")

// Role is the caller's kind of account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Identity is a caller whose bearer token has been verified.
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the identity belongs to an admin account.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Action names an operation subject to authorization.
type Action int

const (
	ActionManageStudents Action = iota
	ActionViewLeaderboard
	ActionExportReport
	ActionViewStudent
)

func (a Action) String() string {
	switch a {
	case ActionManageStudents:
		return "manage-students"
	case ActionViewLeaderboard:
		return "view-leaderboard"
	case ActionExportReport:
		return "export-report"
	case ActionViewStudent:
		return "view-student"
	default:
		return "unknown"
	}
}

// Authorize decides whether id may perform action on the resource with resourceID.
// resourceID is only consulted for student-owned resources.
func Authorize(id Identity, action Action, resourceID string) error {
	switch id.Role {
	case RoleAdmin:
		return nil
	case RoleStudent:
		if action == ActionViewStudent && resourceID != "" && resourceID == id.ID {
			return nil
		}
	}
	return ErrForbidden
}
