package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/sitedesk-io/sitedesk/internal/models"
)

// MemoryRoleRepository is an in-memory RoleRepository for tests.
type MemoryRoleRepository struct {
	mu     sync.RWMutex
	rows   []models.UserRole
	nextID uint
}

func NewMemoryRoleRepository() *MemoryRoleRepository {
	return &MemoryRoleRepository{nextID: 1}
}

func (r *MemoryRoleRepository) Grant(userID, siteID uint, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, models.UserRole{ID: r.nextID, UserID: userID, SiteID: siteID, Role: role})
	r.nextID++
}

func (r *MemoryRoleRepository) ListByUser(ctx context.Context, userID uint) ([]models.UserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.UserRole
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *MemoryRoleRepository) ReplaceForSite(ctx context.Context, userID, siteID uint, roles []models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.UserID != userID || row.SiteID != siteID {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	for _, role := range roles {
		r.rows = append(r.rows, models.UserRole{ID: r.nextID, UserID: userID, SiteID: siteID, Role: role})
		r.nextID++
	}
	return nil
}

func (r *MemoryRoleRepository) DistinctSiteIDs(ctx context.Context, userID uint, roles []models.Role) ([]uint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[uint]bool)
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		for _, role := range roles {
			if row.Role == role {
				seen[row.SiteID] = true
			}
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
