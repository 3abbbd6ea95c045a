package repository

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

func newMockRepo(t *testing.T) (*SQLTicketRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewSQLTicketRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func expectTicketLock(mock sqlmock.Sqlmock, ticketID uint) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM tickets WHERE id = ? FOR UPDATE`)).
		WithArgs(ticketID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(ticketID))
}

func TestSetOwnerSingleTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT is_owner
			FROM ticket_assignments
			WHERE ticket_id = ? AND user_id = ?`)).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"is_owner"}).AddRow(false))
	// The clear touches every row of the ticket, not just the one that was
	// the owner in this transaction's snapshot.
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE ticket_assignments
			SET is_owner = ?
			WHERE ticket_id = ?`)).
		WithArgs(false, 10).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE ticket_assignments
			SET is_owner = ?
			WHERE ticket_id = ? AND user_id = ?`)).
		WithArgs(true, 10, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetOwner(t.Context(), 10, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOwnerTargetMissingRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT is_owner`)).
		WithArgs(10, 99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.SetOwner(t.Context(), 10, 99)
	assert.True(t, apperrors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOwnerAlreadyOwnerRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT is_owner`)).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"is_owner"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.SetOwner(t.Context(), 10, 7)
	assert.True(t, apperrors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOwnerMissingTicket(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM tickets WHERE id = ? FOR UPDATE`)).
		WithArgs(10).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.SetOwner(t.Context(), 10, 7)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAgentsElectsFirstOwner(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	// The owner count carries no locking clause; the parent ticket row holds
	// the lock (aggregates cannot, and an empty match would lock nothing).
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticket_assignments WHERE ticket_id = \? AND is_owner = \?\z`).
		WithArgs(10, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_assignments`)).
		WithArgs(10, 2, true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_assignments`)).
		WithArgs(10, 3, false).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AssignAgents(t.Context(), 10, []uint{2, 3}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAgentsKeepsExistingOwner(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs(10, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_assignments`)).
		WithArgs(10, 4, false).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AssignAgents(t.Context(), 10, []uint{4}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAgentsDuplicateIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectTicketLock(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs(10, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_assignments`)).
		WithArgs(10, 4, false).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '10-4'"})
	mock.ExpectRollback()

	err := repo.AssignAgents(t.Context(), 10, []uint{4})
	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAgentsMissingTicket(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM tickets WHERE id = ? FOR UPDATE`)).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.AssignAgents(t.Context(), 99, []uint{2})
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSeedsCreatorFollowing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tickets`)).
		WithArgs(5, 3, "printer on fire").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_followings`)).
		WithArgs(42, 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ticket := &models.Ticket{SiteID: 5, CreatedByID: 3, Title: "printer on fire"}
	require.NoError(t, repo.Create(t.Context(), ticket))
	assert.Equal(t, uint(42), ticket.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
