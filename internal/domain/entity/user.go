package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidUser is returned when a directory record breaks the role rules
var ErrInvalidUser = errors.New("invalid user")

// User is a directory record. The engine reads it but never mutates it.
type User struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Role       Role   `json:"role" yaml:"role"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
	School     string `json:"school,omitempty" yaml:"school,omitempty"`
}

// Validate checks department iff hod, school iff hod or dean.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidUser)
	}
	if u.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidUser, u.ID)
	}

	switch u.Role {
	case RoleHoD:
		if u.Department == "" {
			return fmt.Errorf("%w: %s: department is required for hod", ErrInvalidUser, u.ID)
		}
		if u.School == "" {
			return fmt.Errorf("%w: %s: school is required for hod", ErrInvalidUser, u.ID)
		}
	case RoleDean:
		if u.Department != "" {
			return fmt.Errorf("%w: %s: dean cannot have a department", ErrInvalidUser, u.ID)
		}
		if u.School == "" {
			return fmt.Errorf("%w: %s: school is required for dean", ErrInvalidUser, u.ID)
		}
	case RoleDVC, RoleAdmin:
		if u.Department != "" || u.School != "" {
			return fmt.Errorf("%w: %s: %s cannot be scoped to a department or school", ErrInvalidUser, u.ID, u.Role)
		}
	default:
		return fmt.Errorf("%w: %s: unknown role %q", ErrInvalidUser, u.ID, u.Role)
	}

	return nil
}
