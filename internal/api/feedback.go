package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interviewhub/internal/auth"
	"interviewhub/internal/models"
	"interviewhub/internal/service"
)

// POST /api/feedback
// An authenticated giver is always the caller; giverId in the body only
// counts for admins and unauthenticated deployments.
func (s *Server) createFeedback(c *gin.Context) {
	var req service.CreateFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	if caller, ok := auth.CallerFrom(c); ok && caller.Role != string(models.RoleAdmin) {
		req.GiverID = caller.UserID
	}
	f, err := s.svc.Feedback.Create(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) listFeedback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := s.svc.Feedback.ListByInterview(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/notifications/user/:userId?unread=true
func (s *Server) listNotifications(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	list, err := s.svc.Notifications.List(c.Request.Context(), id, c.Query("unread") == "true")
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.notificationOwner(id)) {
		return
	}
	if err := s.svc.Notifications.MarkRead(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
