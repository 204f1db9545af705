package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient      UserRole = "patient"
	RoleDoctor       UserRole = "doctor"
	RoleNurse        UserRole = "nurse"
	RoleReceptionist UserRole = "receptionist"
	RoleAdmin        UserRole = "admin"
	// RoleSuperAdmin is a platform-level role and is not tenant-scoped
	RoleSuperAdmin UserRole = "super_admin"
)

// User represents a clinician or patient. Emails are unique per
// organization, not globally; the same natural person may have distinct
// user rows in different organizations.
type User struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Email          string    `json:"email" db:"email"`
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	Role           UserRole  `json:"role" db:"role"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserClaims represents JWT token claims for an authenticated caller
type UserClaims struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email"`
	Role           UserRole `json:"role"`
	OrganizationID string   `json:"organization_id"`
}

// IsSuperAdmin reports whether the claims carry the platform-level role
func (c *UserClaims) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}
