package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

// MemorySiteRepository is an in-memory SiteRepository for tests.
type MemorySiteRepository struct {
	mu     sync.RWMutex
	sites  map[uint]models.Site
	nextID uint
}

func NewMemorySiteRepository() *MemorySiteRepository {
	return &MemorySiteRepository{sites: make(map[uint]models.Site), nextID: 1}
}

func (r *MemorySiteRepository) Put(site models.Site) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.ID] = site
	if site.ID >= r.nextID {
		r.nextID = site.ID + 1
	}
}

func (r *MemorySiteRepository) GetByID(ctx context.Context, id uint) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.sites[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("site not found")
	}
	return &site, nil
}

func (r *MemorySiteRepository) List(ctx context.Context) ([]models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sites := make([]models.Site, 0, len(r.sites))
	for _, site := range r.sites {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

func (r *MemorySiteRepository) ListIDs(ctx context.Context) ([]uint, error) {
	sites, _ := r.List(ctx)
	ids := make([]uint, len(sites))
	for i, site := range sites {
		ids[i] = site.ID
	}
	return ids, nil
}

func (r *MemorySiteRepository) Create(ctx context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sites {
		if existing.Code == site.Code {
			return apperrors.NewConflictError("a site with this code already exists")
		}
	}
	site.ID = r.nextID
	r.nextID++
	r.sites[site.ID] = *site
	return nil
}

func (r *MemorySiteRepository) Update(ctx context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[site.ID]; !ok {
		return apperrors.NewNotFoundError("site not found")
	}
	for id, existing := range r.sites {
		if id != site.ID && existing.Code == site.Code {
			return apperrors.NewConflictError("a site with this code already exists")
		}
	}
	r.sites[site.ID] = *site
	return nil
}

func (r *MemorySiteRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[id]; !ok {
		return apperrors.NewNotFoundError("site not found")
	}
	delete(r.sites, id)
	return nil
}
