package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitedesk-io/sitedesk/internal/access"
	"github.com/sitedesk-io/sitedesk/internal/models"
)

func (s *Server) listSites(c *gin.Context) {
	sites, err := s.resolver.UserVisibleSites(c.Request.Context(), actorID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

type createSiteRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) createSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, err := s.admin.CreateSite(c.Request.Context(), actorID(c), access.CreateSiteInput{
		Name: req.Name, Code: req.Code, Mode: req.Mode,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"site": site})
}

type editSiteRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

func (s *Server) editSite(c *gin.Context) {
	siteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req editSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, err := s.admin.EditSite(c.Request.Context(), actorID(c), siteID, access.EditSiteInput{
		Name: req.Name, Mode: req.Mode,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": site})
}

func (s *Server) deleteSite(c *gin.Context) {
	siteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.admin.DeleteSite(c.Request.Context(), actorID(c), siteID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setUserRolesRequest struct {
	Roles []string `json:"roles"`
}

func (s *Server) setUserRoles(c *gin.Context) {
	siteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req setUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roles := make([]models.Role, len(req.Roles))
	for i, raw := range req.Roles {
		roles[i] = models.Role(raw)
	}
	if err := s.admin.SetUserRoles(c.Request.Context(), actorID(c), userID, siteID, roles); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
