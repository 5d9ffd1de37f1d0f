package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onboardhr/onboarding/internal/auth"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

// ownsMailbox reports whether the caller may read or clear email's notifications.
func ownsMailbox(caller *auth.AuthContext, email string) bool {
	return caller.IsHR() || strings.EqualFold(strings.TrimSpace(email), caller.Email)
}

// ListNotifications handles GET /api/notifications/:userEmail
func (h *Handler) ListNotifications(c *gin.Context) {
	email := c.Param("userEmail")
	if !ownsMailbox(auth.FromGin(c), email) {
		forbidden(c)
		return
	}
	notifications, err := h.svc.Notifications.ListForUser(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// CreateNotification handles POST /api/notifications
func (h *Handler) CreateNotification(c *gin.Context) {
	var req portalmodel.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	n, err := h.svc.Notifications.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearNotifications handles DELETE /api/notifications/user/:userEmail
func (h *Handler) ClearNotifications(c *gin.Context) {
	email := c.Param("userEmail")
	if !ownsMailbox(auth.FromGin(c), email) {
		forbidden(c)
		return
	}
	deleted, err := h.svc.Notifications.ClearForUser(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
