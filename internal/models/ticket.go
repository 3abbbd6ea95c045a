package models

import "time"

// Ticket is the minimal projection of a ticket this core needs: its site
// (immutable after creation) and its creator, who is the implicit first
// follower. Content fields live in the CRUD layer outside this core.
type Ticket struct {
	ID          uint      `json:"id" db:"id"`
	SiteID      uint      `json:"site_id" db:"site_id"`
	CreatedByID uint      `json:"created_by_id" db:"created_by_id"`
	Title       string    `json:"title" db:"title"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TicketFollowing entitles a user to read a ticket's non-private content
// without holding a privileged role. Unique per (ticket, user). The creator's
// row is seeded at ticket creation and can never be removed.
type TicketFollowing struct {
	ID       uint `json:"id" db:"id"`
	TicketID uint `json:"ticket_id" db:"ticket_id"`
	UserID   uint `json:"user_id" db:"user_id"`
}

// TicketAssignment links an agent to a ticket. Unique per (ticket, user).
// At most one row per ticket carries IsOwner at any committed point; the
// owner is the single accountable agent.
type TicketAssignment struct {
	ID       uint `json:"id" db:"id"`
	TicketID uint `json:"ticket_id" db:"ticket_id"`
	UserID   uint `json:"user_id" db:"user_id"`
	IsOwner  bool `json:"is_owner" db:"is_owner"`
}

// OwnerOf returns the owner row among assignments, or nil when the ticket has
// no owner yet.
func OwnerOf(assignments []TicketAssignment) *TicketAssignment {
	for i := range assignments {
		if assignments[i].IsOwner {
			return &assignments[i]
		}
	}
	return nil
}
