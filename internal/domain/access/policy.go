// Package access decides who may act on and who may see a request.
package access

import "github.com/garyjia/travel-approval/internal/domain/entity"

// CanDecide reports whether user is the approver currently responsible for req.
func CanDecide(user *entity.User, req *entity.Request) bool {
	if user == nil || req == nil || req.IsFinalized() {
		return false
	}

	switch user.Role {
	case entity.RoleHoD:
		return req.CurrentLevel == entity.LevelHoD && user.Department == req.Department
	case entity.RoleDean:
		return req.CurrentLevel == entity.LevelDean && user.School == req.School
	case entity.RoleDVC:
		return req.CurrentLevel == entity.LevelDVC
	case entity.RoleAdmin:
		return false
	default:
		return false
	}
}

// IsRequester reports whether user submitted req.
func IsRequester(user *entity.User, req *entity.Request) bool {
	return user != nil && req != nil && req.SubmittedBy == user.ID
}

// VisibleTo reports whether user may see req at all.
func VisibleTo(user *entity.User, req *entity.Request) bool {
	if user == nil || req == nil {
		return false
	}

	// Audit views of finished requests are university-wide.
	if req.Status == entity.StatusApproved || req.Status == entity.StatusRejected {
		return true
	}

	switch user.Role {
	case entity.RoleAdmin:
		return true
	case entity.RoleHoD:
		return IsRequester(user, req) ||
			(req.CurrentLevel == entity.LevelHoD && req.Department == user.Department)
	case entity.RoleDean:
		return req.School == user.School
	case entity.RoleDVC:
		return req.CurrentLevel == entity.LevelDVC || req.CurrentLevel.IsTerminal()
	default:
		return false
	}
}

// CanSeePrivate reports whether user may read reason and destination of req.
func CanSeePrivate(user *entity.User, req *entity.Request) bool {
	if !req.IsPrivate {
		return true
	}
	if user == nil {
		return false
	}
	return user.Role == entity.RoleAdmin || IsRequester(user, req) || CanDecide(user, req)
}

// View returns the copy of req that user is allowed to observe.
// The second value is false when req is not visible to user at all.
func View(user *entity.User, req *entity.Request) (*entity.Request, bool) {
	if !VisibleTo(user, req) {
		return nil, false
	}
	if !CanSeePrivate(user, req) {
		return req.Redact(), true
	}
	return req.Clone(), true
}

// InQueue reports whether req is waiting for a decision by user.
func InQueue(user *entity.User, req *entity.Request) bool {
	return CanDecide(user, req)
}
