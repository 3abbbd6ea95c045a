package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedesk-io/sitedesk/internal/access"
	"github.com/sitedesk-io/sitedesk/internal/assignment"
	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/config"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

type testEnv struct {
	users   *repository.MemoryUserRepository
	sites   *repository.MemorySiteRepository
	roles   *repository.MemoryRoleRepository
	tickets *repository.MemoryTicketRepository
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := miniredis.RunT(t)
	c, err := cache.New(
		config.RedisConfig{Addr: srv.Addr()},
		config.CacheConfig{KeyPrefix: "helpdesk:", TTL: 30 * 24 * time.Hour},
	)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	log := slog.New(slog.DiscardHandler)
	env := &testEnv{
		users:   repository.NewMemoryUserRepository(),
		sites:   repository.NewMemorySiteRepository(),
		roles:   repository.NewMemoryRoleRepository(),
		tickets: repository.NewMemoryTicketRepository(),
	}
	store := access.NewRoleStore(env.roles, c, log)
	resolver := access.NewResolver(env.users, env.sites, env.tickets, env.roles, store, c, log)
	admin := access.NewAdmin(resolver, env.sites, env.roles, cache.NewInvalidator(c, log), log)
	engine := assignment.NewEngine(env.tickets, env.users, resolver, assignment.NopNotifier{}, assignment.NopCommentLogger{}, log)
	env.router = NewServer(resolver, admin, engine, log).Router()
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, actorID uint, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actorID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(actorID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsExposed(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sitedesk_cache")
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/sites", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSiteEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 1, IsSuperAdmin: true})
	env.users.Put(models.User{ID: 2})

	w := env.do(t, http.MethodPost, "/api/sites", 1,
		gin.H{"name": "Support", "code": "SUP", "mode": "Public"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Non-super-admins are rejected with the taxonomy error shape.
	w = env.do(t, http.MethodPost, "/api/sites", 2,
		gin.H{"name": "Ops", "code": "OPS", "mode": "Public"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "authorization_denied")
}

func TestListSitesScopedToActor(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 2})
	env.sites.Put(models.Site{ID: 10, Name: "Support", Code: "SUP", Mode: models.SitePublic})
	env.sites.Put(models.Site{ID: 11, Name: "Internal", Code: "INT", Mode: models.SitePrivate})

	w := env.do(t, http.MethodGet, "/api/sites", 2, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sites []models.Site `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sites, 1)
	assert.Equal(t, uint(10), resp.Sites[0].ID)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 1, FullName: "Alice"})
	env.users.Put(models.User{ID: 2, FullName: "Bob"})
	env.users.Put(models.User{ID: 4, FullName: "Dave"})
	env.sites.Put(models.Site{ID: 10, Name: "Support", Code: "SUP", Mode: models.SitePublic})
	env.roles.Grant(1, 10, models.RoleAdmin)
	env.roles.Grant(2, 10, models.RoleAgent)

	w := env.do(t, http.MethodPost, "/api/tickets", 4, gin.H{"site_id": 10, "title": "printer on fire"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Ticket models.Ticket `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	ticketID := created.Ticket.ID
	require.NotZero(t, ticketID)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/tickets/%d/assignments", ticketID), 1,
		gin.H{"agent_ids": []uint{2}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/tickets/%d", ticketID), 4, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Assignments []models.TicketAssignment `json:"assignments"`
		Privileged  bool                      `json:"privileged"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Assignments, 1)
	assert.True(t, view.Assignments[0].IsOwner)
	assert.False(t, view.Privileged)
}

func TestGetTicketDeniedForStranger(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 4})
	env.users.Put(models.User{ID: 5})
	env.sites.Put(models.Site{ID: 10, Name: "Support", Code: "SUP", Mode: models.SitePublic})

	w := env.do(t, http.MethodPost, "/api/tickets", 4, gin.H{"site_id": 10, "title": "vpn down"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/tickets/1", 5, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnassignOwnerRejectedOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 1, FullName: "Alice"})
	env.users.Put(models.User{ID: 2, FullName: "Bob"})
	env.users.Put(models.User{ID: 4, FullName: "Dave"})
	env.sites.Put(models.Site{ID: 10, Name: "Support", Code: "SUP", Mode: models.SitePublic})
	env.roles.Grant(1, 10, models.RoleAdmin)
	env.roles.Grant(2, 10, models.RoleAgent)

	w := env.do(t, http.MethodPost, "/api/tickets", 4, gin.H{"site_id": 10, "title": "printer on fire"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/tickets/1/assignments", 1, gin.H{"agent_ids": []uint{2}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/tickets/1/assignments/2", 1, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "transfer ownership")
}

func TestSetUserRolesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.users.Put(models.User{ID: 1, IsSuperAdmin: true})
	env.users.Put(models.User{ID: 3})
	env.sites.Put(models.Site{ID: 10, Name: "Support", Code: "SUP", Mode: models.SitePrivate})

	w := env.do(t, http.MethodPut, "/api/sites/10/users/3/roles", 1, gin.H{"roles": []string{"Agent"}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPut, "/api/sites/10/users/3/roles", 1, gin.H{"roles": []string{"Wizard"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
