package uploads

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPHandler struct {
	Service *UploadService
}

func NewHTTPHandler(service *UploadService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Download streams the file stored under the :key path parameter.
func (h *HTTPHandler) Download(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	reader, contentType, err := h.Service.Download(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "download failed", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download failed"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		slog.WarnContext(c.Request.Context(), "download interrupted", "key", key, "error", err)
	}
}
