package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

func TestRolesForUserWritesThrough(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.roles.Grant(1, 10, models.RoleAgent)
	f.roles.Grant(1, 11, models.RoleAdmin)

	roles, err := f.store.RolesForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	var cached []models.UserRole
	require.NoError(t, f.cache.GetJSON(ctx, cache.RolesKey(1), &cached))
	assert.Equal(t, roles, cached)
}

func TestRolesForUserServesCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.roles.Grant(2, 10, models.RoleUser)

	first, err := f.store.RolesForUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A write that skips invalidation stays invisible.
	f.roles.Grant(2, 11, models.RoleAgent)
	again, err := f.store.RolesForUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, again, 1)

	require.NoError(t, f.cache.Delete(ctx, cache.RolesKey(2)))
	fresh, err := f.store.RolesForUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestRolesForUserFallsBackWhenCacheDown(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.roles.Grant(3, 10, models.RoleAgent)

	f.srv.Close()

	roles, err := f.store.RolesForUser(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRolesForUserOnSiteFiltersWithoutPoisoningCache(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.roles.Grant(4, 10, models.RoleAgent)
	f.roles.Grant(4, 11, models.RoleAdmin)

	onSite, err := f.store.RolesForUserOnSite(ctx, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAgent}, onSite)

	// The cached entry still holds the full grant set, not the filtered one.
	var cached []models.UserRole
	require.NoError(t, f.cache.GetJSON(ctx, cache.RolesKey(4), &cached))
	assert.Len(t, cached, 2)
}

func TestHasRole(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.roles.Grant(5, 10, models.RoleAgent)

	ok, err := f.store.HasRole(ctx, 5, 10, models.RoleAdmin, models.RoleAgent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.HasRole(ctx, 5, 10, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.HasRole(ctx, 5, 11, models.RoleAgent)
	require.NoError(t, err)
	assert.False(t, ok)
}
