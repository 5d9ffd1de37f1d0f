package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/onboardhr/onboarding/internal/auth"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/uploads"
)

// UploadDocument handles POST /api/documents/upload
// Multipart fields: file, candidateId.
func (h *Handler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uploads.MaxFileSize+1<<20)

	candidateID, err := strconv.ParseUint(c.PostForm("candidateId"), 10, 64)
	if err != nil || candidateID == 0 {
		badRequest(c, "candidateId is required")
		return
	}
	if !auth.FromGin(c).CanAccessCandidate(uint(candidateID)) {
		forbidden(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fileHeader.Size > uploads.MaxFileSize {
		respondError(c, uploads.ErrFileTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "failed to read file")
		return
	}
	defer file.Close()

	doc, err := h.svc.Documents.Upload(c.Request.Context(), uint(candidateID), fileHeader.Filename, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, portalmodel.NewDocumentResponse(doc))
}

// ListDocuments handles GET /api/documents/candidate/:candidateId
func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	if !auth.FromGin(c).CanAccessCandidate(id) {
		forbidden(c)
		return
	}
	docs, err := h.svc.Documents.ListForCandidate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]portalmodel.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, portalmodel.NewDocumentResponse(&docs[i]))
	}
	c.JSON(http.StatusOK, out)
}
