// Package api exposes the access-control and assignment core over HTTP.
// Authentication happens upstream; the gateway forwards the resolved user id
// in the X-User-ID header and this layer trusts it.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitedesk-io/sitedesk/internal/access"
	"github.com/sitedesk-io/sitedesk/internal/apperrors"
	"github.com/sitedesk-io/sitedesk/internal/assignment"
)

const userIDKey = "userID"

// Server wires the HTTP handlers to the core services.
type Server struct {
	resolver *access.Resolver
	admin    *access.Admin
	engine   *assignment.Engine
	log      *slog.Logger
}

func NewServer(resolver *access.Resolver, admin *access.Admin, engine *assignment.Engine, log *slog.Logger) *Server {
	return &Server{resolver: resolver, admin: admin, engine: engine, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/api", s.identify())
	{
		authed.GET("/sites", s.listSites)
		authed.POST("/sites", s.createSite)
		authed.PUT("/sites/:id", s.editSite)
		authed.DELETE("/sites/:id", s.deleteSite)
		authed.PUT("/sites/:id/users/:userId/roles", s.setUserRoles)

		authed.POST("/tickets", s.createTicket)
		authed.GET("/tickets/:id", s.getTicket)
		authed.POST("/tickets/:id/assignments", s.assignAgents)
		authed.PUT("/tickets/:id/owner", s.setOwner)
		authed.DELETE("/tickets/:id/assignments/:userId", s.unassignAgent)
		authed.POST("/tickets/:id/followers", s.addFollower)
		authed.DELETE("/tickets/:id/followers/:userId", s.removeFollower)
	}
	return r
}

// identify extracts the authenticated user id from X-User-ID.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid user identity"})
			return
		}
		c.Set(userIDKey, uint(id))
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func actorID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps an application error onto its HTTP status. Anything
// outside the taxonomy is a 500 with the detail kept server-side.
func (s *Server) respondError(c *gin.Context, err error) {
	if appErr := apperrors.As(err); appErr != nil {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message, "type": appErr.Type})
		return
	}
	s.log.Error("unhandled error", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
