package cache

import (
	"context"
	"log/slog"
)

// Invalidator removes derived cache entries after the underlying rows
// change. It must be called after the write commits and before the mutation
// returns, so a subsequent read in the same logical sequence is not served
// stale privilege data. Failures are logged and returned, never swallowed.
type Invalidator struct {
	cache *RedisCache
	log   *slog.Logger
}

// NewInvalidator builds an Invalidator over the given cache.
func NewInvalidator(cache *RedisCache, log *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, log: log}
}

// UserRoles invalidates everything derived from one user's role rows: the
// role set itself, their per-site access answers, and their visible-site
// list.
func (i *Invalidator) UserRoles(ctx context.Context, userID uint) error {
	if err := i.cache.Delete(ctx, RolesKey(userID), UserSitesKey(userID)); err != nil {
		i.log.Error("invalidate user roles", "user_id", userID, "error", err)
		return err
	}
	if err := i.cache.DeletePattern(ctx, SiteAccessPatternForUser(userID)); err != nil {
		i.log.Error("invalidate user site access", "user_id", userID, "error", err)
		return err
	}
	return nil
}

// SiteAccess invalidates one (user, site) access answer.
func (i *Invalidator) SiteAccess(ctx context.Context, userID, siteID uint) error {
	if err := i.cache.Delete(ctx, SiteAccessKey(userID, siteID)); err != nil {
		i.log.Error("invalidate site access", "user_id", userID, "site_id", siteID, "error", err)
		return err
	}
	return nil
}

// AllSites invalidates every user's visible-site list and site-access
// answers. Called on any site create/edit/delete: the public/private set
// changed for everyone.
func (i *Invalidator) AllSites(ctx context.Context) error {
	if err := i.cache.DeletePattern(ctx, UserSitesPattern); err != nil {
		i.log.Error("invalidate user sites", "error", err)
		return err
	}
	if err := i.cache.DeletePattern(ctx, SiteAccessPattern); err != nil {
		i.log.Error("invalidate site access", "error", err)
		return err
	}
	return nil
}
