package entity

// Role is the closed set of portal roles.
type Role string

const (
	RoleHoD   Role = "hod"
	RoleDean  Role = "dean"
	RoleDVC   Role = "dvc"
	RoleAdmin Role = "admin"
)

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleHoD, RoleDean, RoleDVC, RoleAdmin:
		return true
	default:
		return false
	}
}

// ApprovalLevel returns the chain level this role decides at.
// Admin has no level and the second return value is false.
func (r Role) ApprovalLevel() (Level, bool) {
	switch r {
	case RoleHoD:
		return LevelHoD, true
	case RoleDean:
		return LevelDean, true
	case RoleDVC:
		return LevelDVC, true
	case RoleAdmin:
		return "", false
	default:
		return "", false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Level is a position in the approval chain.
type Level string

const (
	LevelHoD       Level = "hod"
	LevelDean      Level = "dean"
	LevelDVC       Level = "dvc"
	LevelCompleted Level = "completed"
)

// ApprovalLevels lists the decision levels in chain order.
var ApprovalLevels = []Level{LevelHoD, LevelDean, LevelDVC}

// Index returns the position of the level in the chain, or -1 if unknown.
func (l Level) Index() int {
	switch l {
	case LevelHoD:
		return 0
	case LevelDean:
		return 1
	case LevelDVC:
		return 2
	case LevelCompleted:
		return 3
	default:
		return -1
	}
}

// Next returns the level that follows l on approval.
func (l Level) Next() Level {
	switch l {
	case LevelHoD:
		return LevelDean
	case LevelDean:
		return LevelDVC
	default:
		return LevelCompleted
	}
}

// IsValid returns true if the level is one of the defined constants
func (l Level) IsValid() bool {
	return l.Index() >= 0
}

// IsTerminal returns true for the completed level
func (l Level) IsTerminal() bool {
	return l == LevelCompleted
}

// Role returns the role responsible for deciding at this level.
func (l Level) Role() (Role, bool) {
	switch l {
	case LevelHoD:
		return RoleHoD, true
	case LevelDean:
		return RoleDean, true
	case LevelDVC:
		return RoleDVC, true
	default:
		return "", false
	}
}

// String returns the string representation of the level
func (l Level) String() string {
	return string(l)
}

// Status is the overall outcome of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid returns true if the status is one of the defined constants
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Notification kinds
const (
	NotificationActionRequired = "ACTION_REQUIRED"
	NotificationApproved       = "APPROVED"
	NotificationRejected       = "REJECTED"
	NotificationReminder       = "REMINDER"
)
