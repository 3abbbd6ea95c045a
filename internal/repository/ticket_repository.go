package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/database"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

// SQLTicketRepository is the sqlx-backed ticket repository.
type SQLTicketRepository struct {
	db *sqlx.DB
}

func NewSQLTicketRepository(db *sqlx.DB) *SQLTicketRepository {
	return &SQLTicketRepository{db: db}
}

func (r *SQLTicketRepository) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	query := r.db.Rebind(`
		SELECT id, site_id, created_by_id, title, created_at
		FROM tickets
		WHERE id = ?`)

	var ticket models.Ticket
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("ticket not found")
		}
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return &ticket, nil
}

// Create inserts the ticket row and the creator's following row in one
// transaction. The creator is the implicit first follower and is never
// removable.
func (r *SQLTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		ins := tx.Rebind(`
			INSERT INTO tickets (site_id, created_by_id, title)
			VALUES (?, ?, ?)`)
		res, err := tx.ExecContext(ctx, ins, ticket.SiteID, ticket.CreatedByID, ticket.Title)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			ticket.ID = uint(id)
		}

		follow := tx.Rebind(`
			INSERT INTO ticket_followings (ticket_id, user_id)
			VALUES (?, ?)`)
		if _, err := tx.ExecContext(ctx, follow, ticket.ID, ticket.CreatedByID); err != nil {
			return fmt.Errorf("seed creator following: %w", err)
		}
		return nil
	})
}

func (r *SQLTicketRepository) ListAssignments(ctx context.Context, ticketID uint) ([]models.TicketAssignment, error) {
	query := r.db.Rebind(`
		SELECT id, ticket_id, user_id, is_owner
		FROM ticket_assignments
		WHERE ticket_id = ?
		ORDER BY id`)

	var assignments []models.TicketAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, ticketID); err != nil {
		return nil, fmt.Errorf("list assignments for ticket %d: %w", ticketID, err)
	}
	return assignments, nil
}

// AssignAgents inserts one row per agent inside a transaction serialized on
// the parent ticket row. Owner election reads the committed owner count only
// after that lock is held, so two concurrent batches on an owner-less ticket
// cannot both elect an owner. The unique constraint on (ticket_id, user_id)
// is the source of truth for duplicates; a violation fails the whole batch.
func (r *SQLTicketRepository) AssignAgents(ctx context.Context, ticketID uint, agentIDs []uint) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.lockTicket(ctx, tx, ticketID); err != nil {
			return err
		}

		check := tx.Rebind(`SELECT COUNT(*) FROM ticket_assignments WHERE ticket_id = ? AND is_owner = ?`)
		var owners int
		if err := tx.GetContext(ctx, &owners, check, ticketID, true); err != nil {
			return fmt.Errorf("check current owner: %w", err)
		}

		ins := tx.Rebind(`
			INSERT INTO ticket_assignments (ticket_id, user_id, is_owner)
			VALUES (?, ?, ?)`)
		for i, agentID := range agentIDs {
			isOwner := owners == 0 && i == 0
			if _, err := tx.ExecContext(ctx, ins, ticketID, agentID, isOwner); err != nil {
				if database.IsUniqueViolation(err) {
					return apperrors.NewConflictError("agent is already assigned to this ticket")
				}
				return fmt.Errorf("insert assignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return err
		}
		return fmt.Errorf("assign agents to ticket %d: %w", ticketID, err)
	}
	return nil
}

// SetOwner transfers ownership inside a transaction serialized on the parent
// ticket row. The target is validated under that lock, every assignment row
// of the ticket has its owner flag cleared, then the target row is marked.
// The unconditional clear means a concurrent transfer's winner is re-read
// and cleared rather than skipped under read-committed isolation, so no
// committed reader ever observes zero or two owners.
func (r *SQLTicketRepository) SetOwner(ctx context.Context, ticketID, agentID uint) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.lockTicket(ctx, tx, ticketID); err != nil {
			return err
		}

		var isOwner bool
		get := tx.Rebind(`
			SELECT is_owner
			FROM ticket_assignments
			WHERE ticket_id = ? AND user_id = ?`)
		if err := tx.GetContext(ctx, &isOwner, get, ticketID, agentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewValidationError("agent is not assigned to this ticket")
			}
			return fmt.Errorf("load target assignment: %w", err)
		}
		if isOwner {
			return apperrors.NewValidationError("agent is already the owner of this ticket")
		}

		clearOwner := tx.Rebind(`
			UPDATE ticket_assignments
			SET is_owner = ?
			WHERE ticket_id = ?`)
		if _, err := tx.ExecContext(ctx, clearOwner, false, ticketID); err != nil {
			return fmt.Errorf("clear current owner: %w", err)
		}

		set := tx.Rebind(`
			UPDATE ticket_assignments
			SET is_owner = ?
			WHERE ticket_id = ? AND user_id = ?`)
		if _, err := tx.ExecContext(ctx, set, true, ticketID, agentID); err != nil {
			return fmt.Errorf("set new owner: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return err
		}
		return fmt.Errorf("set owner on ticket %d: %w", ticketID, err)
	}
	return nil
}

func (r *SQLTicketRepository) DeleteAssignment(ctx context.Context, ticketID, agentID uint) error {
	query := r.db.Rebind(`
		DELETE FROM ticket_assignments
		WHERE ticket_id = ? AND user_id = ?`)

	res, err := r.db.ExecContext(ctx, query, ticketID, agentID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewValidationError("agent is not assigned to this ticket")
	}
	return nil
}

func (r *SQLTicketRepository) GetFollowing(ctx context.Context, ticketID, userID uint) (*models.TicketFollowing, error) {
	query := r.db.Rebind(`
		SELECT id, ticket_id, user_id
		FROM ticket_followings
		WHERE ticket_id = ? AND user_id = ?`)

	var following models.TicketFollowing
	if err := r.db.GetContext(ctx, &following, query, ticketID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("ticket following not found")
		}
		return nil, fmt.Errorf("get following: %w", err)
	}
	return &following, nil
}

func (r *SQLTicketRepository) ListFollowings(ctx context.Context, ticketID uint) ([]models.TicketFollowing, error) {
	query := r.db.Rebind(`
		SELECT id, ticket_id, user_id
		FROM ticket_followings
		WHERE ticket_id = ?
		ORDER BY id`)

	var followings []models.TicketFollowing
	if err := r.db.SelectContext(ctx, &followings, query, ticketID); err != nil {
		return nil, fmt.Errorf("list followings for ticket %d: %w", ticketID, err)
	}
	return followings, nil
}

func (r *SQLTicketRepository) AddFollowing(ctx context.Context, ticketID, userID uint) error {
	query := r.db.Rebind(`
		INSERT INTO ticket_followings (ticket_id, user_id)
		VALUES (?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, ticketID, userID); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewConflictError("user is already a follower of this ticket")
		}
		return fmt.Errorf("add following: %w", err)
	}
	return nil
}

func (r *SQLTicketRepository) RemoveFollowing(ctx context.Context, ticketID, userID uint) error {
	query := r.db.Rebind(`
		DELETE FROM ticket_followings
		WHERE ticket_id = ? AND user_id = ?`)

	res, err := r.db.ExecContext(ctx, query, ticketID, userID)
	if err != nil {
		return fmt.Errorf("remove following: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError("user is not a follower of this ticket")
	}
	return nil
}

// lockTicket takes the row lock that serializes owner election and owner
// transfer per ticket. The lock rides on the parent tickets row: a COUNT or
// a predicate on ticket_assignments cannot carry it, since PostgreSQL
// rejects FOR UPDATE with aggregates and a predicate matching zero rows
// locks nothing.
func (r *SQLTicketRepository) lockTicket(ctx context.Context, tx *sqlx.Tx, ticketID uint) error {
	query := tx.Rebind(`SELECT id FROM tickets WHERE id = ?` + r.lockClause())
	var id uint
	if err := tx.GetContext(ctx, &id, query, ticketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("ticket not found")
		}
		return fmt.Errorf("lock ticket %d: %w", ticketID, err)
	}
	return nil
}

// lockClause returns FOR UPDATE where the driver supports it. SQLite
// serializes writers already and rejects the syntax.
func (r *SQLTicketRepository) lockClause() string {
	if r.db.DriverName() == "sqlite3" {
		return ""
	}
	return " FOR UPDATE"
}
