package repository

import (
	"context"
	"sync"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

// MemoryTicketRepository is an in-memory TicketRepository for tests. Its
// mutations take the store lock for their whole duration, mirroring the
// transactional guarantees of the SQL implementation: owner election and
// owner transfer are atomic with respect to concurrent callers.
type MemoryTicketRepository struct {
	mu          sync.RWMutex
	tickets     map[uint]models.Ticket
	assignments []models.TicketAssignment
	followings  []models.TicketFollowing
	nextID      uint
}

func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[uint]models.Ticket), nextID: 1}
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("ticket not found")
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == 0 {
		ticket.ID = r.nextID
	}
	if ticket.ID >= r.nextID {
		r.nextID = ticket.ID + 1
	}
	r.tickets[ticket.ID] = *ticket
	r.followings = append(r.followings, models.TicketFollowing{
		ID: r.nextID, TicketID: ticket.ID, UserID: ticket.CreatedByID,
	})
	r.nextID++
	return nil
}

func (r *MemoryTicketRepository) ListAssignments(ctx context.Context, ticketID uint) ([]models.TicketAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TicketAssignment
	for _, a := range r.assignments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryTicketRepository) AssignAgents(ctx context.Context, ticketID uint, agentIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticketID]; !ok {
		return apperrors.NewNotFoundError("ticket not found")
	}

	ownerExists := false
	assigned := make(map[uint]bool)
	for _, a := range r.assignments {
		if a.TicketID != ticketID {
			continue
		}
		assigned[a.UserID] = true
		if a.IsOwner {
			ownerExists = true
		}
	}

	// All-or-nothing: reject the batch before inserting anything. A repeated
	// id within the batch trips the same check the unique constraint would.
	for _, agentID := range agentIDs {
		if assigned[agentID] {
			return apperrors.NewConflictError("agent is already assigned to this ticket")
		}
		assigned[agentID] = true
	}

	for i, agentID := range agentIDs {
		r.assignments = append(r.assignments, models.TicketAssignment{
			ID:       r.nextID,
			TicketID: ticketID,
			UserID:   agentID,
			IsOwner:  !ownerExists && i == 0,
		})
		r.nextID++
	}
	return nil
}

func (r *MemoryTicketRepository) SetOwner(ctx context.Context, ticketID, agentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticketID]; !ok {
		return apperrors.NewNotFoundError("ticket not found")
	}

	target := -1
	for i, a := range r.assignments {
		if a.TicketID == ticketID && a.UserID == agentID {
			target = i
			break
		}
	}
	if target == -1 {
		return apperrors.NewValidationError("agent is not assigned to this ticket")
	}
	if r.assignments[target].IsOwner {
		return apperrors.NewValidationError("agent is already the owner of this ticket")
	}

	for i, a := range r.assignments {
		if a.TicketID == ticketID && a.IsOwner {
			r.assignments[i].IsOwner = false
		}
	}
	r.assignments[target].IsOwner = true
	return nil
}

func (r *MemoryTicketRepository) DeleteAssignment(ctx context.Context, ticketID, agentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assignments {
		if a.TicketID == ticketID && a.UserID == agentID {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return apperrors.NewValidationError("agent is not assigned to this ticket")
}

func (r *MemoryTicketRepository) GetFollowing(ctx context.Context, ticketID, userID uint) (*models.TicketFollowing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.followings {
		if f.TicketID == ticketID && f.UserID == userID {
			following := f
			return &following, nil
		}
	}
	return nil, apperrors.NewNotFoundError("ticket following not found")
}

func (r *MemoryTicketRepository) ListFollowings(ctx context.Context, ticketID uint) ([]models.TicketFollowing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TicketFollowing
	for _, f := range r.followings {
		if f.TicketID == ticketID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *MemoryTicketRepository) AddFollowing(ctx context.Context, ticketID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.followings {
		if f.TicketID == ticketID && f.UserID == userID {
			return apperrors.NewConflictError("user is already a follower of this ticket")
		}
	}
	r.followings = append(r.followings, models.TicketFollowing{ID: r.nextID, TicketID: ticketID, UserID: userID})
	r.nextID++
	return nil
}

func (r *MemoryTicketRepository) RemoveFollowing(ctx context.Context, ticketID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.followings {
		if f.TicketID == ticketID && f.UserID == userID {
			r.followings = append(r.followings[:i], r.followings[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFoundError("user is not a follower of this ticket")
}
