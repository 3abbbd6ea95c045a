// Package repository implements data access for the access-control and
// assignment core. SQL implementations are backed by sqlx; memory
// implementations back the unit tests.
package repository

import (
	"context"

	"github.com/sitedesk-io/sitedesk/internal/models"
)

// UserRepository resolves user identities. Callers have already
// authenticated the user; a missing row here is a precondition failure.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// SiteRepository handles site rows. Create and Update reject duplicate site
// codes with a conflict error.
type SiteRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Site, error)
	List(ctx context.Context) ([]models.Site, error)
	ListIDs(ctx context.Context) ([]uint, error)
	Create(ctx context.Context, site *models.Site) error
	Update(ctx context.Context, site *models.Site) error
	Delete(ctx context.Context, id uint) error
}

// RoleRepository handles (user, site, role) grant rows.
type RoleRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.UserRole, error)
	// ReplaceForSite atomically swaps the user's role rows on one site for
	// the given set. An empty set revokes all roles on the site.
	ReplaceForSite(ctx context.Context, userID, siteID uint, roles []models.Role) error
	// DistinctSiteIDs returns the site ids where the user holds any of the
	// given roles.
	DistinctSiteIDs(ctx context.Context, userID uint, roles []models.Role) ([]uint, error)
}

// TicketRepository handles tickets, followings, and assignments.
//
// AssignAgents and SetOwner carry the two ordering guarantees of the core:
// owner election and owner transfer are single transactions serialized per
// ticket, so no reader ever observes zero or two owners on an assigned
// ticket, under any interleaving of concurrent callers.
type TicketRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Ticket, error)
	// Create inserts the ticket and seeds the creator's following row in the
	// same transaction.
	Create(ctx context.Context, ticket *models.Ticket) error

	ListAssignments(ctx context.Context, ticketID uint) ([]models.TicketAssignment, error)
	// AssignAgents inserts one assignment row per agent. When the ticket has
	// no owner at insert time, the first agent in the batch becomes owner.
	// A duplicate (ticket, user) pair fails the whole batch with a conflict.
	AssignAgents(ctx context.Context, ticketID uint, agentIDs []uint) error
	// SetOwner clears the current owner row (if any) and marks agentID's row
	// in one transaction. The target row must exist and must not already be
	// the owner.
	SetOwner(ctx context.Context, ticketID, agentID uint) error
	DeleteAssignment(ctx context.Context, ticketID, agentID uint) error

	GetFollowing(ctx context.Context, ticketID, userID uint) (*models.TicketFollowing, error)
	ListFollowings(ctx context.Context, ticketID uint) ([]models.TicketFollowing, error)
	AddFollowing(ctx context.Context, ticketID, userID uint) error
	RemoveFollowing(ctx context.Context, ticketID, userID uint) error
}
