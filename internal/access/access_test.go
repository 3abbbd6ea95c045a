package access

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/config"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

type fixture struct {
	users    *repository.MemoryUserRepository
	sites    *repository.MemorySiteRepository
	roles    *repository.MemoryRoleRepository
	tickets  *repository.MemoryTicketRepository
	cache    *cache.RedisCache
	srv      *miniredis.Miniredis
	store    *RoleStore
	resolver *Resolver
	admin    *Admin
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := miniredis.RunT(t)
	c, err := cache.New(
		config.RedisConfig{Addr: srv.Addr()},
		config.CacheConfig{KeyPrefix: "helpdesk:", TTL: 30 * 24 * time.Hour},
	)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	log := slog.New(slog.DiscardHandler)
	f := &fixture{
		users:   repository.NewMemoryUserRepository(),
		sites:   repository.NewMemorySiteRepository(),
		roles:   repository.NewMemoryRoleRepository(),
		tickets: repository.NewMemoryTicketRepository(),
		cache:   c,
		srv:     srv,
	}
	f.store = NewRoleStore(f.roles, c, log)
	f.resolver = NewResolver(f.users, f.sites, f.tickets, f.roles, f.store, c, log)
	f.admin = NewAdmin(f.resolver, f.sites, f.roles, cache.NewInvalidator(c, log), log)
	return f
}

func (f *fixture) addUser(id uint, super bool) {
	f.users.Put(models.User{ID: id, IsSuperAdmin: super})
}

func (f *fixture) addSite(id uint, mode models.SiteMode) {
	f.sites.Put(models.Site{ID: id, Name: "site", Code: fmt.Sprintf("S%d", id), Mode: mode})
}
