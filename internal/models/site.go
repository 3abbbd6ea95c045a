package models

import (
	"fmt"
	"time"
)

// SiteMode controls baseline visibility of a site. Public sites are readable
// by any authenticated user; Private sites require a role row or super-admin.
type SiteMode string

const (
	SitePublic  SiteMode = "Public"
	SitePrivate SiteMode = "Private"
)

// ParseSiteMode converts a raw string into a SiteMode.
func ParseSiteMode(s string) (SiteMode, error) {
	switch SiteMode(s) {
	case SitePublic, SitePrivate:
		return SiteMode(s), nil
	}
	return "", fmt.Errorf("invalid site mode %q", s)
}

func (m SiteMode) Valid() bool {
	return m == SitePublic || m == SitePrivate
}

// Site is a tenant. Tickets, roles, and knowledge articles are scoped to
// exactly one site.
type Site struct {
	ID        uint      `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Mode      SiteMode  `json:"mode" db:"mode"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsPublic reports whether any authenticated user may read the site.
func (s *Site) IsPublic() bool { return s.Mode == SitePublic }
