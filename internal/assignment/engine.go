package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sitedesk-io/sitedesk/internal/access"
	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

// Engine carries the assignment operations. Authorization precedes every
// write; notification fan-out and action comments follow it and never fail
// the operation.
type Engine struct {
	tickets  repository.TicketRepository
	users    repository.UserRepository
	access   *access.Resolver
	notifier Notifier
	comments CommentLogger
	log      *slog.Logger
}

func NewEngine(
	tickets repository.TicketRepository,
	users repository.UserRepository,
	resolver *access.Resolver,
	notifier Notifier,
	comments CommentLogger,
	log *slog.Logger,
) *Engine {
	return &Engine{
		tickets:  tickets,
		users:    users,
		access:   resolver,
		notifier: notifier,
		comments: comments,
		log:      log,
	}
}

// CreateTicket opens a ticket on a site the actor can access. The actor
// becomes the creator and the first follower.
func (e *Engine) CreateTicket(ctx context.Context, actorID, siteID uint, title string) (*models.Ticket, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("ticket title is required")
	}
	if err := e.access.CheckSiteAccess(ctx, actorID, siteID); err != nil {
		return nil, err
	}

	ticket := &models.Ticket{SiteID: siteID, CreatedByID: actorID, Title: title}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	e.log.Info("ticket created", "ticket_id", ticket.ID, "site_id", siteID, "actor_id", actorID)
	return ticket, nil
}

// TicketView is a ticket together with its assignment and follower rows.
type TicketView struct {
	Ticket      *models.Ticket            `json:"ticket"`
	Assignments []models.TicketAssignment `json:"assignments"`
	Followers   []models.TicketFollowing  `json:"followers"`
}

// GetTicket loads a ticket with its assignments and followers. Authorization
// is the caller's responsibility.
func (e *Engine) GetTicket(ctx context.Context, ticketID uint) (*TicketView, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignments, err := e.tickets.ListAssignments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	followers, err := e.tickets.ListFollowings(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return &TicketView{Ticket: ticket, Assignments: assignments, Followers: followers}, nil
}

// AssignAgents adds agents to a ticket. Site admins may assign anyone;
// agents may only pick up tickets themselves, so a non-admin batch must be
// exactly the actor. Every target must hold the Agent role on the ticket's
// site. When the ticket has no owner, the first agent of the batch becomes
// owner; a duplicate target fails the whole batch.
func (e *Engine) AssignAgents(ctx context.Context, actorID, ticketID uint, agentIDs []uint) error {
	if len(agentIDs) == 0 {
		return apperrors.NewValidationError("at least one agent is required")
	}

	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	isAdmin, err := e.access.IsAdmin(ctx, actorID, ticket.SiteID)
	if err != nil {
		return err
	}
	if !isAdmin && (len(agentIDs) != 1 || agentIDs[0] != actorID) {
		return apperrors.NewAuthorizationError("agents can only assign themselves to a ticket")
	}

	for _, agentID := range agentIDs {
		isAgent, err := e.access.IsAgent(ctx, agentID, ticket.SiteID)
		if err != nil {
			return err
		}
		if !isAgent {
			return apperrors.NewValidationError(fmt.Sprintf("user %d is not an agent of this site", agentID))
		}
	}

	// Audience snapshot precedes the write so the new agents are not counted
	// as pre-existing assignees.
	audience, err := e.ticketAudience(ctx, ticketID)
	if err != nil {
		return err
	}

	if err := e.tickets.AssignAgents(ctx, ticketID, agentIDs); err != nil {
		return err
	}

	actorName := e.userName(ctx, actorID)
	newAgents := make(map[uint]bool, len(agentIDs))
	for _, agentID := range agentIDs {
		newAgents[agentID] = true
	}
	for _, agentID := range agentIDs {
		if agentID == actorID {
			continue
		}
		e.notify(ctx, agentID,
			fmt.Sprintf("%s assigned you to ticket %q", actorName, ticket.Title), ticketLink(ticketID))
	}
	for userID := range audience {
		if newAgents[userID] || userID == actorID {
			continue
		}
		e.notify(ctx, userID,
			fmt.Sprintf("New agents were assigned to ticket %q", ticket.Title), ticketLink(ticketID))
	}
	e.comment(ctx, ticketID, actorID, fmt.Sprintf("%s assigned %s", actorName, e.userNames(ctx, agentIDs)))

	e.log.Info("agents assigned", "ticket_id", ticketID, "agent_ids", agentIDs, "actor_id", actorID)
	return nil
}

// SetOwner transfers ticket ownership to an already-assigned agent. The
// current owner may hand off; site admins may reassign at will, including on
// a ticket that lost its owner. Anyone else is denied.
func (e *Engine) SetOwner(ctx context.Context, actorID, ticketID, agentID uint) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	assignments, err := e.tickets.ListAssignments(ctx, ticketID)
	if err != nil {
		return err
	}
	var target *models.TicketAssignment
	for i := range assignments {
		if assignments[i].UserID == agentID {
			target = &assignments[i]
			break
		}
	}
	if target == nil {
		return apperrors.NewValidationError("agent is not assigned to this ticket")
	}
	if target.IsOwner {
		return apperrors.NewValidationError("agent is already the owner of this ticket")
	}

	isAdmin, err := e.access.IsAdmin(ctx, actorID, ticket.SiteID)
	if err != nil {
		return err
	}
	if !isAdmin {
		owner := models.OwnerOf(assignments)
		if owner == nil || owner.UserID != actorID {
			return apperrors.NewAuthorizationError("only the current owner or a site admin can transfer ownership")
		}
	}

	if err := e.tickets.SetOwner(ctx, ticketID, agentID); err != nil {
		return err
	}

	actorName := e.userName(ctx, actorID)
	if agentID != actorID {
		e.notify(ctx, agentID,
			fmt.Sprintf("%s made you the owner of ticket %q", actorName, ticket.Title), ticketLink(ticketID))
	}
	e.comment(ctx, ticketID, actorID,
		fmt.Sprintf("%s transferred ownership to %s", actorName, e.userName(ctx, agentID)))

	e.log.Info("owner set", "ticket_id", ticketID, "agent_id", agentID, "actor_id", actorID)
	return nil
}

// UnassignAgent removes an agent from a ticket. Agents may step off a ticket
// themselves; removing someone else takes a site admin. The owner can never
// be unassigned; ownership must be transferred first so the ticket keeps a
// single accountable agent.
func (e *Engine) UnassignAgent(ctx context.Context, actorID, ticketID, agentID uint) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	if agentID != actorID {
		isAdmin, err := e.access.IsAdmin(ctx, actorID, ticket.SiteID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return apperrors.NewAuthorizationError("agents can only unassign themselves from a ticket")
		}
	}

	assignments, err := e.tickets.ListAssignments(ctx, ticketID)
	if err != nil {
		return err
	}
	var target *models.TicketAssignment
	for i := range assignments {
		if assignments[i].UserID == agentID {
			target = &assignments[i]
			break
		}
	}
	if target == nil {
		return apperrors.NewValidationError("agent is not assigned to this ticket")
	}
	if target.IsOwner {
		return apperrors.NewValidationError("the ticket owner cannot be unassigned; transfer ownership first")
	}

	if err := e.tickets.DeleteAssignment(ctx, ticketID, agentID); err != nil {
		return err
	}

	e.comment(ctx, ticketID, actorID,
		fmt.Sprintf("%s unassigned %s", e.userName(ctx, actorID), e.userName(ctx, agentID)))
	e.log.Info("agent unassigned", "ticket_id", ticketID, "agent_id", agentID, "actor_id", actorID)
	return nil
}

// ticketAudience is the union of followers and assignees, keyed by user id.
func (e *Engine) ticketAudience(ctx context.Context, ticketID uint) (map[uint]bool, error) {
	audience := make(map[uint]bool)
	followings, err := e.tickets.ListFollowings(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for _, f := range followings {
		audience[f.UserID] = true
	}
	assignments, err := e.tickets.ListAssignments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		audience[a.UserID] = true
	}
	return audience, nil
}

func (e *Engine) notify(ctx context.Context, userID uint, body, link string) {
	n := Notification{ID: uuid.New(), UserID: userID, Body: body, Link: link}
	if err := e.notifier.Submit(ctx, n); err != nil {
		e.log.Error("notification submit failed", "user_id", userID, "error", err)
	}
}

func (e *Engine) comment(ctx context.Context, ticketID, actorID uint, body string) {
	if err := e.comments.LogAction(ctx, ticketID, actorID, body); err != nil {
		e.log.Error("action comment failed", "ticket_id", ticketID, "error", err)
	}
}

func (e *Engine) userName(ctx context.Context, userID uint) string {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil || user.FullName == "" {
		return fmt.Sprintf("user %d", userID)
	}
	return user.FullName
}

func (e *Engine) userNames(ctx context.Context, userIDs []uint) string {
	names := make([]string, len(userIDs))
	for i, id := range userIDs {
		names[i] = e.userName(ctx, id)
	}
	return strings.Join(names, ", ")
}
