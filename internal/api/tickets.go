package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createTicketRequest struct {
	SiteID uint   `json:"site_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
}

func (s *Server) createTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.engine.CreateTicket(c.Request.Context(), actorID(c), req.SiteID, req.Title)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

func (s *Server) getTicket(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	privileged, _, err := s.resolver.CheckTicketAccess(ctx, actorID(c), ticketID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	view, err := s.engine.GetTicket(ctx, ticketID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticket":      view.Ticket,
		"assignments": view.Assignments,
		"followers":   view.Followers,
		"privileged":  privileged,
	})
}

type assignAgentsRequest struct {
	AgentIDs []uint `json:"agent_ids" binding:"required"`
}

func (s *Server) assignAgents(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignAgentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.AssignAgents(c.Request.Context(), actorID(c), ticketID, req.AgentIDs); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setOwnerRequest struct {
	AgentID uint `json:"agent_id" binding:"required"`
}

func (s *Server) setOwner(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.SetOwner(c.Request.Context(), actorID(c), ticketID, req.AgentID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unassignAgent(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	agentID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := s.engine.UnassignAgent(c.Request.Context(), actorID(c), ticketID, agentID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type followerRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (s *Server) addFollower(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req followerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.AddFollower(c.Request.Context(), actorID(c), ticketID, req.UserID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFollower(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := s.engine.RemoveFollower(c.Request.Context(), actorID(c), ticketID, userID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
