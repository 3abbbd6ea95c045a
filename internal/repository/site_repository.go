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

// SQLSiteRepository is the sqlx-backed site repository.
type SQLSiteRepository struct {
	db *sqlx.DB
}

func NewSQLSiteRepository(db *sqlx.DB) *SQLSiteRepository {
	return &SQLSiteRepository{db: db}
}

func (r *SQLSiteRepository) GetByID(ctx context.Context, id uint) (*models.Site, error) {
	query := r.db.Rebind(`
		SELECT id, name, code, mode, created_at, updated_at
		FROM sites
		WHERE id = ?`)

	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("site not found")
		}
		return nil, fmt.Errorf("get site %d: %w", id, err)
	}
	return &site, nil
}

func (r *SQLSiteRepository) List(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	err := r.db.SelectContext(ctx, &sites, `
		SELECT id, name, code, mode, created_at, updated_at
		FROM sites
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

func (r *SQLSiteRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM sites ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list site ids: %w", err)
	}
	return ids, nil
}

func (r *SQLSiteRepository) Create(ctx context.Context, site *models.Site) error {
	query := r.db.Rebind(`
		INSERT INTO sites (name, code, mode)
		VALUES (?, ?, ?)`)

	res, err := r.db.ExecContext(ctx, query, site.Name, site.Code, site.Mode)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewConflictError("a site with this code already exists")
		}
		return fmt.Errorf("create site: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		site.ID = uint(id)
	}
	return nil
}

func (r *SQLSiteRepository) Update(ctx context.Context, site *models.Site) error {
	query := r.db.Rebind(`
		UPDATE sites
		SET name = ?, code = ?, mode = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, site.Name, site.Code, site.Mode, site.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewConflictError("a site with this code already exists")
		}
		return fmt.Errorf("update site %d: %w", site.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError("site not found")
	}
	return nil
}

func (r *SQLSiteRepository) Delete(ctx context.Context, id uint) error {
	query := r.db.Rebind(`DELETE FROM sites WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete site %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError("site not found")
	}
	return nil
}
