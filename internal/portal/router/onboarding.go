package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

// GetStepsByID handles GET /api/onboarding/by-id/:candidateId
func (h *Handler) GetStepsByID(c *gin.Context) {
	id, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	steps, err := h.svc.Onboarding.GetSteps(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, steps)
}

// GetStepsByEmail handles GET /api/onboarding/:email
func (h *Handler) GetStepsByEmail(c *gin.Context) {
	steps, err := h.svc.Onboarding.GetStepsByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, steps)
}

// UpdateStep handles POST /api/onboarding/:candidateId/step
func (h *Handler) UpdateStep(c *gin.Context) {
	id, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	caller := auth.FromGin(c)
	if !caller.CanAccessCandidate(id) {
		forbidden(c)
		return
	}

	var req portalmodel.UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.guard.Require(actorOf(caller), model.StepID(req.StepID)); err != nil {
		respondError(c, err)
		return
	}

	record, err := h.svc.Onboarding.UpdateStep(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "step updated", "step": record})
}

// StepCompleted handles POST /api/onboarding/step-completed. Candidates may
// only report their own steps.
func (h *Handler) StepCompleted(c *gin.Context) {
	var req portalmodel.StepCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller := auth.FromGin(c)
	if !caller.IsHR() && !refersTo(caller, req) {
		forbidden(c)
		return
	}

	candidate, err := h.svc.Onboarding.StepCompleted(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "step completion recorded", "candidateId": candidate.ID})
}

func refersTo(caller *auth.AuthContext, req portalmodel.StepCompletedRequest) bool {
	ref := strings.TrimSpace(req.Email)
	if ref == "" {
		ref = req.ID.String()
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return caller.CandidateID != 0 && uint(id) == caller.CandidateID
	}
	return ref != "" && strings.EqualFold(ref, caller.Email)
}

// RecentActivities handles GET /api/onboarding/activities/recent
func (h *Handler) RecentActivities(c *gin.Context) {
	activities, err := h.svc.Onboarding.RecentActivities(c.Request.Context(), recentActivityLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// CandidateActivities handles GET /api/onboarding/activities/:candidateId
func (h *Handler) CandidateActivities(c *gin.Context) {
	id, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	activities, err := h.svc.Onboarding.CandidateActivities(c.Request.Context(), id, candidateActivityLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}
