package access

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

// Resolver answers site-scoped and ticket-scoped authorization questions.
// The same privilege boundary (Admin/Agent versus follower) decides both
// "can you open this ticket" and "can you see its private content", so the
// two can never drift apart.
type Resolver struct {
	users   repository.UserRepository
	sites   repository.SiteRepository
	tickets repository.TicketRepository
	roles   *RoleStore
	roleRep repository.RoleRepository
	cache   *cache.RedisCache
	log     *slog.Logger
}

func NewResolver(
	users repository.UserRepository,
	sites repository.SiteRepository,
	tickets repository.TicketRepository,
	roleRep repository.RoleRepository,
	roles *RoleStore,
	c *cache.RedisCache,
	log *slog.Logger,
) *Resolver {
	return &Resolver{
		users:   users,
		sites:   sites,
		tickets: tickets,
		roles:   roles,
		roleRep: roleRep,
		cache:   c,
		log:     log,
	}
}

// IsSuperAdmin reports whether the user bypasses every site-scoped check.
func (r *Resolver) IsSuperAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return false, storeErr(err)
	}
	return user.IsSuperAdmin, nil
}

// IsAdmin reports whether the user is a super-admin or holds Admin on the site.
func (r *Resolver) IsAdmin(ctx context.Context, userID, siteID uint) (bool, error) {
	if super, err := r.IsSuperAdmin(ctx, userID); err != nil || super {
		return super, err
	}
	return r.roles.HasRole(ctx, userID, siteID, models.RoleAdmin)
}

// IsAdminOrAgent reports whether the user is privileged on the site: a
// super-admin, or holding Admin or Agent there.
func (r *Resolver) IsAdminOrAgent(ctx context.Context, userID, siteID uint) (bool, error) {
	if super, err := r.IsSuperAdmin(ctx, userID); err != nil || super {
		return super, err
	}
	return r.roles.HasRole(ctx, userID, siteID, models.RoleAdmin, models.RoleAgent)
}

// IsAgent reports whether the user holds the Agent role on the site. There
// is deliberately no super-admin bypass: this validates assignment targets,
// and being super-admin does not make someone an agent of a site.
func (r *Resolver) IsAgent(ctx context.Context, userID, siteID uint) (bool, error) {
	return r.roles.HasRole(ctx, userID, siteID, models.RoleAgent)
}

// CheckAdmin is IsAdmin raising an authorization error on false.
func (r *Resolver) CheckAdmin(ctx context.Context, userID, siteID uint) error {
	ok, err := r.IsAdmin(ctx, userID, siteID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewAuthorizationError("you do not have access to this site")
	}
	return nil
}

// HasSiteAccess reports whether the user may see the site at all: true for
// super-admins, for Public sites, and for any role holder on the site. The
// answer is cached per (user, site) pair.
func (r *Resolver) HasSiteAccess(ctx context.Context, userID, siteID uint) (bool, error) {
	key := cache.SiteAccessKey(userID, siteID)

	var cached bool
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.log.Warn("site access cache read failed, falling back to store",
			"user_id", userID, "site_id", siteID, "error", err)
	}

	hasAccess, err := r.computeSiteAccess(ctx, userID, siteID)
	if err != nil {
		return false, err
	}

	if err := r.cache.SetJSON(ctx, key, hasAccess, 0); err != nil {
		r.log.Warn("site access cache write failed", "user_id", userID, "site_id", siteID, "error", err)
	}
	return hasAccess, nil
}

func (r *Resolver) computeSiteAccess(ctx context.Context, userID, siteID uint) (bool, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return false, storeErr(err)
	}
	if user.IsSuperAdmin {
		return true, nil
	}

	site, err := r.sites.GetByID(ctx, siteID)
	if err != nil {
		return false, storeErr(err)
	}
	if site.IsPublic() {
		return true, nil
	}

	held, err := r.roles.RolesForUserOnSite(ctx, userID, siteID)
	if err != nil {
		return false, err
	}
	return len(held) > 0, nil
}

// CheckSiteAccess is HasSiteAccess raising an authorization error on false.
func (r *Resolver) CheckSiteAccess(ctx context.Context, userID, siteID uint) error {
	ok, err := r.HasSiteAccess(ctx, userID, siteID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewAuthorizationError("you do not have access to this site")
	}
	return nil
}

// SitesWithRole returns the ids of sites where the user holds any of the
// given roles. Super-admins get every site in the system. Used to scope
// cross-site list queries.
func (r *Resolver) SitesWithRole(ctx context.Context, userID uint, roles ...models.Role) ([]uint, error) {
	super, err := r.IsSuperAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if super {
		ids, err := r.sites.ListIDs(ctx)
		if err != nil {
			return nil, storeErr(err)
		}
		return ids, nil
	}

	ids, err := r.roleRep.DistinctSiteIDs(ctx, userID, roles)
	if err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

// UserVisibleSites returns the sites the user may see, ordered by id: every
// Public site plus the Private sites they hold a role on. Super-admins see
// everything. Cached per user.
func (r *Resolver) UserVisibleSites(ctx context.Context, userID uint) ([]models.Site, error) {
	key := cache.UserSitesKey(userID)

	var cached []models.Site
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.log.Warn("user sites cache read failed, falling back to store", "user_id", userID, "error", err)
	}

	sites, err := r.computeVisibleSites(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(ctx, key, sites, 0); err != nil {
		r.log.Warn("user sites cache write failed", "user_id", userID, "error", err)
	}
	return sites, nil
}

func (r *Resolver) computeVisibleSites(ctx context.Context, userID uint) ([]models.Site, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	all, err := r.sites.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if user.IsSuperAdmin {
		return all, nil
	}

	grants, err := r.roles.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	withRole := make(map[uint]bool, len(grants))
	for _, grant := range grants {
		withRole[grant.SiteID] = true
	}

	visible := make([]models.Site, 0, len(all))
	for _, site := range all {
		if site.IsPublic() || withRole[site.ID] {
			visible = append(visible, site)
		}
	}
	return visible, nil
}

// CheckTicketAccess authorizes opening a ticket. Admins and agents of the
// ticket's site get full access including private content and a nil
// following record; everyone else needs a TicketFollowing row and is limited
// to non-private content. Absent both, the call fails with an authorization
// error.
func (r *Resolver) CheckTicketAccess(ctx context.Context, userID, ticketID uint) (bool, *models.TicketFollowing, error) {
	ticket, err := r.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, nil, storeErr(err)
	}

	privileged, err := r.IsAdminOrAgent(ctx, userID, ticket.SiteID)
	if err != nil {
		return false, nil, err
	}
	if privileged {
		return true, nil, nil
	}

	following, err := r.tickets.GetFollowing(ctx, ticketID, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil, apperrors.NewAuthorizationError("you do not have access to this ticket")
		}
		return false, nil, storeErr(err)
	}
	return false, following, nil
}

// IsAssignedToTicket reports whether the user has an assignment row on the
// ticket.
func (r *Resolver) IsAssignedToTicket(ctx context.Context, userID, ticketID uint) (bool, error) {
	assignments, err := r.tickets.ListAssignments(ctx, ticketID)
	if err != nil {
		return false, storeErr(err)
	}
	for _, a := range assignments {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// IsAdminOrAssignedToTicket guards working-state mutations such as checklist
// and internal-comment edits: a site admin or any assigned agent qualifies.
func (r *Resolver) IsAdminOrAssignedToTicket(ctx context.Context, userID, ticketID uint) (bool, error) {
	ticket, err := r.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, storeErr(err)
	}
	if admin, err := r.IsAdmin(ctx, userID, ticket.SiteID); err != nil || admin {
		return admin, err
	}
	return r.IsAssignedToTicket(ctx, userID, ticketID)
}

// HasTicketAccess is the non-throwing variant of CheckTicketAccess, used for
// pre-filtering ticket references (e.g. search results). A missing ticket
// yields false rather than an error.
func (r *Resolver) HasTicketAccess(ctx context.Context, userID, ticketID uint) (bool, error) {
	_, _, err := r.CheckTicketAccess(ctx, userID, ticketID)
	if err != nil {
		if apperrors.IsAuthorization(err) || apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
