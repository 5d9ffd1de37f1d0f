package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/portal/service"
)

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req portalmodel.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email and password are required"})
		return
	}

	resp, err := h.svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid email or password"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
