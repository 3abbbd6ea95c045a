package assignment

import (
	"context"
	"fmt"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
)

// AddFollower grants a user read access to the ticket's non-private content.
// Site admins, site agents, and the ticket's creator may add followers. A
// user who is already following is a conflict.
func (e *Engine) AddFollower(ctx context.Context, actorID, ticketID, userID uint) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := e.checkFollowerManager(ctx, actorID, ticket.SiteID, ticket.CreatedByID); err != nil {
		return err
	}

	if err := e.tickets.AddFollowing(ctx, ticketID, userID); err != nil {
		return err
	}

	if userID != actorID {
		e.notify(ctx, userID,
			fmt.Sprintf("%s added you as a follower of ticket %q", e.userName(ctx, actorID), ticket.Title),
			ticketLink(ticketID))
	}
	e.log.Info("follower added", "ticket_id", ticketID, "user_id", userID, "actor_id", actorID)
	return nil
}

// RemoveFollower revokes a follower's access. The creator's following row is
// permanent: the ticket must always stay visible to the person who opened it.
func (e *Engine) RemoveFollower(ctx context.Context, actorID, ticketID, userID uint) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := e.checkFollowerManager(ctx, actorID, ticket.SiteID, ticket.CreatedByID); err != nil {
		return err
	}

	if userID == ticket.CreatedByID {
		return apperrors.NewValidationError("the ticket creator cannot be removed from followers")
	}

	if err := e.tickets.RemoveFollowing(ctx, ticketID, userID); err != nil {
		return err
	}
	e.log.Info("follower removed", "ticket_id", ticketID, "user_id", userID, "actor_id", actorID)
	return nil
}

func (e *Engine) checkFollowerManager(ctx context.Context, actorID, siteID, creatorID uint) error {
	if actorID == creatorID {
		return nil
	}
	privileged, err := e.access.IsAdminOrAgent(ctx, actorID, siteID)
	if err != nil {
		return err
	}
	if !privileged {
		return apperrors.NewAuthorizationError("you do not have access to manage followers on this ticket")
	}
	return nil
}
