package access

import "strings"

// Role is a user role carried in access token claims.
type Role string

// Role constants.
const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleEmployee  Role = "EMPLOYEE"
	RoleClient    Role = "CLIENT"
	RoleLead      Role = "LEAD"
	RoleUser      Role = "USER"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleAdmin, RoleModerator, RoleEmployee, RoleClient, RoleLead, RoleUser}

// ParseRole maps a raw claim value to a known role. Matching is
// case-insensitive; unknown values report false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// DashboardPath returns the role's dashboard path without locale prefix.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin, RoleModerator:
		return "/admin/dashboard"
	case RoleEmployee:
		return "/employee/dashboard"
	default:
		return "/client/dashboard"
	}
}

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

// AccountStatus constants.
const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusPending   AccountStatus = "PENDING"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusInactive  AccountStatus = "INACTIVE"
)

// PendingState is the onboarding sub-state of a PENDING account.
type PendingState int

// PendingState values. PendingComplete is also used for non-PENDING accounts.
const (
	PendingComplete PendingState = iota
	PendingEmailUnverified
	PendingProfileIncomplete
)

// String implements fmt.Stringer.
func (s PendingState) String() string {
	switch s {
	case PendingEmailUnverified:
		return "email_unverified"
	case PendingProfileIncomplete:
		return "profile_incomplete"
	default:
		return "complete"
	}
}

// EvaluatePending derives the onboarding sub-state. Email verification is
// checked before profile completion.
func EvaluatePending(status AccountStatus, emailVerified, profileComplete bool) PendingState {
	if status != StatusPending {
		return PendingComplete
	}
	if !emailVerified {
		return PendingEmailUnverified
	}
	if !profileComplete {
		return PendingProfileIncomplete
	}
	return PendingComplete
}
