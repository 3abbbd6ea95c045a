package access

import (
	"context"
	"log/slog"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

// Admin carries the mutations that change the access-control state itself:
// the site lifecycle and role grants. Every mutation invalidates the derived
// cache entries after the write commits, so the next check on the same
// logical sequence reads fresh state.
type Admin struct {
	resolver *Resolver
	sites    repository.SiteRepository
	roles    repository.RoleRepository
	inval    *cache.Invalidator
	log      *slog.Logger
}

func NewAdmin(resolver *Resolver, sites repository.SiteRepository, roles repository.RoleRepository, inval *cache.Invalidator, log *slog.Logger) *Admin {
	return &Admin{resolver: resolver, sites: sites, roles: roles, inval: inval, log: log}
}

// CreateSiteInput carries the fields an operator sets on a new site.
type CreateSiteInput struct {
	Name string
	Code string
	Mode string
}

// CreateSite creates a site. Only super-admins may do this: a fresh site has
// no admins yet, so no site-scoped role could authorize it.
func (a *Admin) CreateSite(ctx context.Context, actorID uint, in CreateSiteInput) (*models.Site, error) {
	super, err := a.resolver.IsSuperAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !super {
		return nil, apperrors.NewAuthorizationError("only super admins can create sites")
	}

	mode, err := models.ParseSiteMode(in.Mode)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if in.Name == "" || in.Code == "" {
		return nil, apperrors.NewValidationError("site name and code are required")
	}

	site := &models.Site{Name: in.Name, Code: in.Code, Mode: mode}
	if err := a.sites.Create(ctx, site); err != nil {
		return nil, err
	}

	if err := a.inval.AllSites(ctx); err != nil {
		return nil, apperrors.NewUnavailableError("cache invalidation failed", err)
	}
	a.log.Info("site created", "site_id", site.ID, "code", site.Code, "actor_id", actorID)
	return site, nil
}

// EditSiteInput carries the mutable site fields. Empty strings leave the
// field unchanged.
type EditSiteInput struct {
	Name string
	Mode string
}

// EditSite updates a site's name or visibility mode. Site admins and
// super-admins may edit. A mode change flips visibility for every user, so
// the whole derived cache is invalidated.
func (a *Admin) EditSite(ctx context.Context, actorID, siteID uint, in EditSiteInput) (*models.Site, error) {
	if err := a.resolver.CheckAdmin(ctx, actorID, siteID); err != nil {
		return nil, err
	}

	site, err := a.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, storeErr(err)
	}

	if in.Name != "" {
		site.Name = in.Name
	}
	if in.Mode != "" {
		mode, err := models.ParseSiteMode(in.Mode)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		site.Mode = mode
	}

	if err := a.sites.Update(ctx, site); err != nil {
		return nil, err
	}

	if err := a.inval.AllSites(ctx); err != nil {
		return nil, apperrors.NewUnavailableError("cache invalidation failed", err)
	}
	a.log.Info("site updated", "site_id", site.ID, "mode", site.Mode, "actor_id", actorID)
	return site, nil
}

// DeleteSite removes a site. Super-admin only, like creation.
func (a *Admin) DeleteSite(ctx context.Context, actorID, siteID uint) error {
	super, err := a.resolver.IsSuperAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !super {
		return apperrors.NewAuthorizationError("only super admins can delete sites")
	}

	if err := a.sites.Delete(ctx, siteID); err != nil {
		return err
	}

	if err := a.inval.AllSites(ctx); err != nil {
		return apperrors.NewUnavailableError("cache invalidation failed", err)
	}
	a.log.Info("site deleted", "site_id", siteID, "actor_id", actorID)
	return nil
}

// SetUserRoles replaces the target user's role set on one site. The actor
// must administer that site. An empty set revokes all roles there. Cache
// entries derived from the target's grants are invalidated after the swap
// commits.
func (a *Admin) SetUserRoles(ctx context.Context, actorID, userID, siteID uint, roles []models.Role) error {
	if err := a.resolver.CheckAdmin(ctx, actorID, siteID); err != nil {
		return err
	}

	for _, role := range roles {
		if !role.Valid() {
			return apperrors.NewValidationError("invalid role " + string(role))
		}
	}

	if err := a.roles.ReplaceForSite(ctx, userID, siteID, roles); err != nil {
		return storeErr(err)
	}

	if err := a.inval.UserRoles(ctx, userID); err != nil {
		return apperrors.NewUnavailableError("cache invalidation failed", err)
	}
	a.log.Info("user roles replaced", "user_id", userID, "site_id", siteID, "roles", roles, "actor_id", actorID)
	return nil
}
