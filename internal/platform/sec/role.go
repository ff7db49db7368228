// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents an authorization level granted to an account.
// An account may hold several roles at once.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Can moderate community content
	RoleModerator UserRole = "moderator"

	// Can publish comics and manage the ones they own
	RoleUploader UserRole = "uploader"

	// Default role for registered readers
	RoleUser UserRole = "user"
)

// IsValid reports whether r is a recognised role.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUploader, RoleUser:
		return true
	}
	return false
}

// # Role Sets

// RoleSet is the set of roles carried by an authenticated actor.
type RoleSet map[UserRole]struct{}

// NewRoleSet builds a set from raw role names, ignoring unknown values.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, raw := range roles {
		role := UserRole(raw)
		if role.IsValid() {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role UserRole) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set contains at least one of roles.
func (s RoleSet) HasAny(roles ...UserRole) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}
