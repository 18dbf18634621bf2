package models

import (
	"time"

	id "ardhi/pkg/domain"
)

// Role determines which workflow actions a user may perform.
type Role string

const (
	RoleUser        Role = "user"
	RoleCountyAdmin Role = "county_admin"
	RoleNlcAdmin    Role = "nlc_admin"
	RoleSuperAdmin  Role = "super_admin"
)

// User is the directory's view of an account. Account lifecycle (registration,
// role approval) is owned elsewhere; the workflow core only resolves users and
// checks roles and jurisdictions.
type User struct {
	ID         id.UserID `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	KraPin     string    `json:"kra_pin"`
	Role       Role      `json:"role"`
	// County is required and meaningful only for county admins.
	County    string    `json:"county,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsCountyAdminFor reports whether the user administers the given county.
// Super admins pass every jurisdiction check.
func (u *User) IsCountyAdminFor(county string) bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	return u.Role == RoleCountyAdmin && u.County == county
}

// HasNationalRole reports whether the user holds national-commission authority.
func (u *User) HasNationalRole() bool {
	return u.Role == RoleNlcAdmin || u.Role == RoleSuperAdmin
}

// IsAdmin reports whether the user holds any administrative role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleCountyAdmin || u.Role == RoleNlcAdmin || u.Role == RoleSuperAdmin
}
