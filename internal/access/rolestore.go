// Package access implements the authorization core: cached role resolution,
// site- and ticket-scoped access checks, and the administrative mutations
// that change who may do what.
//
// Every check fails closed. An unreachable store denies the action; an
// unreachable cache forces a store read but never grants access by default.
package access

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/database"
	"github.com/sitedesk-io/sitedesk/internal/models"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

// RoleStore resolves the set of (role, site) grants a user holds, fronted by
// the cache with write-through on miss. Role data changes rarely; the cache
// TTL is long and correctness relies on invalidation, not expiry.
type RoleStore struct {
	roles repository.RoleRepository
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewRoleStore(roles repository.RoleRepository, c *cache.RedisCache, log *slog.Logger) *RoleStore {
	return &RoleStore{roles: roles, cache: c, log: log}
}

// RolesForUser returns every role grant the user holds. An empty set is a
// valid answer, distinct from "user does not exist" (a precondition the
// caller has already resolved).
func (s *RoleStore) RolesForUser(ctx context.Context, userID uint) ([]models.UserRole, error) {
	key := cache.RolesKey(userID)

	var cached []models.UserRole
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// Unreachable cache forces a store read; it never fails the lookup.
		s.log.Warn("role cache read failed, falling back to store", "user_id", userID, "error", err)
	}

	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if err := s.cache.SetJSON(ctx, key, roles, 0); err != nil {
		s.log.Warn("role cache write failed", "user_id", userID, "error", err)
	}
	return roles, nil
}

// RolesForUserOnSite filters the user's grants down to one site. The full
// set is cached once under roles-{userId}; filtering happens in memory so a
// site-scoped read never poisons the global key with a partial set.
func (s *RoleStore) RolesForUserOnSite(ctx context.Context, userID, siteID uint) ([]models.Role, error) {
	all, err := s.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []models.Role
	for _, grant := range all {
		if grant.SiteID == siteID {
			out = append(out, grant.Role)
		}
	}
	return out, nil
}

// HasRole reports whether the user holds any of the given roles on the site.
func (s *RoleStore) HasRole(ctx context.Context, userID, siteID uint, roles ...models.Role) (bool, error) {
	held, err := s.RolesForUserOnSite(ctx, userID, siteID)
	if err != nil {
		return false, err
	}
	for _, have := range held {
		for _, want := range roles {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// storeErr classifies a store failure: connectivity problems become
// dependency-unavailable so authorization callers deny rather than 500.
func storeErr(err error) error {
	if database.IsConnectionError(err) {
		return apperrors.NewUnavailableError("relational store unreachable", err)
	}
	return err
}
