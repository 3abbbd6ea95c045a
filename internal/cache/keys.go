package cache

import "fmt"

// Key layout matches the projections the access layer memoizes:
//
//	roles-{userId}                the user's (role, site) set
//	hasSiteAccess-{userId}-{siteId}
//	userSites-{userId}            sites visible to the user
func RolesKey(userID uint) string {
	return fmt.Sprintf("roles-%d", userID)
}

func SiteAccessKey(userID, siteID uint) string {
	return fmt.Sprintf("hasSiteAccess-%d-%d", userID, siteID)
}

func UserSitesKey(userID uint) string {
	return fmt.Sprintf("userSites-%d", userID)
}

// Patterns for bulk invalidation. Site-mode changes affect every user's
// access to the site, and per-user invalidation cannot be correct without
// enumerating all users, so these delete broadly.
const (
	SiteAccessPattern = "hasSiteAccess-*"
	UserSitesPattern  = "userSites-*"
)

// SiteAccessPatternForUser matches all site-access entries of one user.
func SiteAccessPatternForUser(userID uint) string {
	return fmt.Sprintf("hasSiteAccess-%d-*", userID)
}
