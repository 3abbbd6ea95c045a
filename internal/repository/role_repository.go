package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sitedesk-io/sitedesk/internal/database"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

// SQLRoleRepository is the sqlx-backed user-role repository.
type SQLRoleRepository struct {
	db *sqlx.DB
}

func NewSQLRoleRepository(db *sqlx.DB) *SQLRoleRepository {
	return &SQLRoleRepository{db: db}
}

func (r *SQLRoleRepository) ListByUser(ctx context.Context, userID uint) ([]models.UserRole, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, site_id, role
		FROM user_roles
		WHERE user_id = ?
		ORDER BY id`)

	var roles []models.UserRole
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("list roles for user %d: %w", userID, err)
	}
	return roles, nil
}

func (r *SQLRoleRepository) ReplaceForSite(ctx context.Context, userID, siteID uint, roles []models.Role) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		del := tx.Rebind(`DELETE FROM user_roles WHERE user_id = ? AND site_id = ?`)
		if _, err := tx.ExecContext(ctx, del, userID, siteID); err != nil {
			return fmt.Errorf("delete roles: %w", err)
		}
		ins := tx.Rebind(`INSERT INTO user_roles (user_id, site_id, role) VALUES (?, ?, ?)`)
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx, ins, userID, siteID, role); err != nil {
				return fmt.Errorf("insert role %s: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace roles for user %d on site %d: %w", userID, siteID, err)
	}
	return nil
}

func (r *SQLRoleRepository) DistinctSiteIDs(ctx context.Context, userID uint, roles []models.Role) ([]uint, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT site_id
		FROM user_roles
		WHERE user_id = ? AND role IN (?)
		ORDER BY site_id`, userID, roles)
	if err != nil {
		return nil, fmt.Errorf("build site id query: %w", err)
	}

	var ids []uint
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("distinct site ids for user %d: %w", userID, err)
	}
	return ids, nil
}
