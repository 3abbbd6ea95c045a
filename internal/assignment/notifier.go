// Package assignment implements the ticket-assignment engine: who works a
// ticket, who owns it, and who follows it. Authorization is delegated to the
// access resolver; persistence and the single-owner guarantee live in the
// ticket repository.
package assignment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Notification is one message to one user. ID is assigned at submission so
// downstream delivery can deduplicate retries.
type Notification struct {
	ID     uuid.UUID `json:"id"`
	UserID uint      `json:"user_id"`
	Body   string    `json:"body"`
	Link   string    `json:"link"`
}

// Notifier delivers notifications. Delivery is best-effort from the engine's
// point of view: a failed submit is logged, never rolled back into the
// mutation that triggered it.
type Notifier interface {
	Submit(ctx context.Context, n Notification) error
}

// CommentLogger records an action comment on a ticket's timeline, e.g.
// "Alice assigned Bob".
type CommentLogger interface {
	LogAction(ctx context.Context, ticketID, actorID uint, body string) error
}

// NopNotifier drops every notification. Used where no delivery backend is
// wired, e.g. in tests.
type NopNotifier struct{}

func (NopNotifier) Submit(ctx context.Context, n Notification) error { return nil }

// NopCommentLogger drops every action comment.
type NopCommentLogger struct{}

func (NopCommentLogger) LogAction(ctx context.Context, ticketID, actorID uint, body string) error {
	return nil
}

// LogNotifier writes notifications to the structured log. It stands in for a
// real delivery backend in single-binary deployments.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Submit(ctx context.Context, notif Notification) error {
	n.log.Info("notification",
		"notification_id", notif.ID, "user_id", notif.UserID, "body", notif.Body, "link", notif.Link)
	return nil
}

// LogCommentLogger writes action comments to the structured log.
type LogCommentLogger struct {
	log *slog.Logger
}

func NewLogCommentLogger(log *slog.Logger) *LogCommentLogger { return &LogCommentLogger{log: log} }

func (c *LogCommentLogger) LogAction(ctx context.Context, ticketID, actorID uint, body string) error {
	c.log.Info("ticket action", "ticket_id", ticketID, "actor_id", actorID, "body", body)
	return nil
}

func ticketLink(ticketID uint) string {
	return fmt.Sprintf("/tickets/%d", ticketID)
}
