package router

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/export"
	"github.com/onboardhr/onboarding/internal/offer"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListCandidates handles GET /api/candidates
// Optional query params: offset, limit. The body is the page of candidates;
// the total count travels in X-Total-Count.
func (h *Handler) ListCandidates(c *gin.Context) {
	offset, ok := optionalInt(c, "offset")
	if !ok {
		return
	}
	limit, ok := optionalInt(c, "limit")
	if !ok {
		return
	}

	page, err := h.svc.Candidates.List(c.Request.Context(), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []portalmodel.Candidate{}
	}
	c.Header(utils.TotalCountHeader, utils.FormatTotalCount(page.Total))
	c.JSON(http.StatusOK, items)
}

// CreateCandidate handles POST /api/candidates
func (h *Handler) CreateCandidate(c *gin.Context) {
	var req portalmodel.CreateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	candidate, err := h.svc.Candidates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

// GetCandidate handles GET /api/candidates/:id
func (h *Handler) GetCandidate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !auth.FromGin(c).CanAccessCandidate(id) {
		forbidden(c)
		return
	}
	candidate, err := h.svc.Candidates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// UpdateProgress handles PATCH /api/candidates/:id/progress
func (h *Handler) UpdateProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req portalmodel.ProgressUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	candidate, err := h.svc.Candidates.UpdateProgress(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// ExportCandidates handles GET /api/candidates/export
func (h *Handler) ExportCandidates(c *gin.Context) {
	candidates, err := h.svc.Candidates.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, candidates); err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("candidates-%s.xlsx", h.now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// OfferLetter handles GET /api/candidates/:id/offer-letter
func (h *Handler) OfferLetter(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !auth.FromGin(c).CanAccessCandidate(id) {
		forbidden(c)
		return
	}

	ctx := c.Request.Context()
	candidate, err := h.svc.Candidates.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := h.svc.Onboarding.StepData(ctx, id, model.StepHRReview)
	if err != nil {
		respondError(c, err)
		return
	}
	terms, err := offer.ParseTerms(data)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := offer.Render(offer.Letter{
		Company:       h.svc.CompanyName,
		CandidateName: candidate.FullName(),
		Position:      candidate.Position,
		Department:    candidate.Department,
		Terms:         terms,
		IssuedAt:      h.now(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="offer-letter-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
