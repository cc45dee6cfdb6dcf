package authz

import "strings"

// AccessLevel is the caller's organizational access tier. Unknown input
// collapses to LevelOther so permission checks fail closed.
type AccessLevel int

const (
	LevelOther AccessLevel = iota
	LevelRoot
	LevelAdmin
)

// ParseAccessLevel maps a stored access-level string to its variant,
// case-insensitively.
func ParseAccessLevel(s string) AccessLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "root":
		return LevelRoot
	case "admin":
		return LevelAdmin
	default:
		return LevelOther
	}
}

func (l AccessLevel) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelAdmin:
		return "admin"
	default:
		return "other"
	}
}

// elevated reports whether the level grants administrative surfaces.
func (l AccessLevel) elevated() bool {
	return l == LevelRoot || l == LevelAdmin
}

// AccountRole is the caller's role within the selected account.
type AccountRole int

const (
	RoleOther AccountRole = iota
	RoleApprover
	RoleViewer
)

// ParseAccountRole maps a stored role string to its variant,
// case-insensitively.
func ParseAccountRole(s string) AccountRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approver":
		return RoleApprover
	case "viewer":
		return RoleViewer
	default:
		return RoleOther
	}
}

func (r AccountRole) String() string {
	switch r {
	case RoleApprover:
		return "approver"
	case RoleViewer:
		return "viewer"
	default:
		return "other"
	}
}

// AccountContext is the caller's currently selected organizational
// scope. It is replaced wholesale on scope switch and cleared on logout;
// it is never mutated in place.
type AccountContext struct {
	AccountID   string
	AccountName string
	AccessLevel AccessLevel
	Role        AccountRole
}
