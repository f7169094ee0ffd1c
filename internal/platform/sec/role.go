// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// Roles are NOT hierarchical: route guards check set membership, so a
// lead-guide is not implicitly everything a guide is.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Manages tours and sees bookings for the tours they lead
	RoleLeadGuide UserRole = "lead-guide"

	// Accompanies tours; read-only on management surfaces
	RoleGuide UserRole = "guide"

	// Default role for standard registered users
	RoleUser UserRole = "user"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLeadGuide, RoleGuide, RoleUser:
		return true
	}
	return false
}

// In reports whether the role is a member of the allowed set.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// # Principal

// Principal is the authenticated actor attached to a request context.
//
// It is a read-only projection of the account record: route guards and
// ownership checks need the identity and role, never the credentials.
type Principal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	Photo string   `json:"photo"`
}
