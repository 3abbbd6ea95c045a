package models

import "time"

// User is an authenticated account. Identity resolution (login, tokens)
// happens in an external auth layer; this core only consumes the resolved
// numeric ID and the super-admin flag.
type User struct {
	ID           uint      `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	IsSuperAdmin bool      `json:"is_super_admin" db:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole is one (user, site, role) grant. A user holds many rows, one per
// site they have a role in. No row means no privileged access on that site.
type UserRole struct {
	ID     uint `json:"id" db:"id"`
	UserID uint `json:"user_id" db:"user_id"`
	SiteID uint `json:"site_id" db:"site_id"`
	Role   Role `json:"role" db:"role"`
}
