// Package domain defines the entities shared by the authorization and
// change-propagation engine: users, projects, tasks, comments, and the
// activity/notification records produced as mutation side effects.
package domain

import (
	"time"

	apperrors "github.com/taskdeck/taskdeck/internal/errors"
)

// Role describes a user's global role.
type Role string

const (
	// RoleAdmin grants every action and bypasses relationship checks.
	RoleAdmin Role = "ADMIN"
	// RoleManager may create projects and be assigned as a project manager.
	RoleManager Role = "MANAGER"
	// RoleMember is the default role.
	RoleMember Role = "MEMBER"
)

// ParseRole validates a role name against the closed set.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleManager, RoleMember:
		return Role(value), nil
	}
	return "", apperrors.New(apperrors.CodeRoleInvalid, "invalid role: "+value)
}

// User is an authenticated principal. Role is mutable only by an admin,
// never by the user on themself.
type User struct {
	ID        string
	Username  string
	FullName  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
