package router

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/database"
	"github.com/onboardhr/onboarding/internal/offer"
	"github.com/onboardhr/onboarding/internal/onboarding/guard"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
	"github.com/onboardhr/onboarding/internal/portal/service"
	"github.com/onboardhr/onboarding/internal/uploads"
)

const (
	recentActivityLimit    = 20
	candidateActivityLimit = 10
)

// Services bundles what the HTTP layer serves.
type Services struct {
	DB            *gorm.DB
	Catalog       *registry.Catalog
	Onboarding    *service.OnboardingService
	Candidates    *service.CandidateService
	Users         *service.UserService
	Notifications *service.NotificationService
	Documents     *service.DocumentService
	Uploads       *uploads.UploadService
	Tokens        *auth.TokenIssuer

	// Stream serves GET /api/ws. Optional.
	Stream gin.HandlerFunc

	CompanyName string
}

type Handler struct {
	svc       Services
	guard     *guard.Guard
	downloads *uploads.HTTPHandler
	now       func() time.Time
}

func NewHandler(svc Services) *Handler {
	if svc.Catalog == nil {
		svc.Catalog = registry.Default()
	}
	return &Handler{
		svc:       svc,
		guard:     guard.New(svc.Catalog),
		downloads: uploads.NewHTTPHandler(svc.Uploads),
		now:       time.Now,
	}
}

// RegisterRoutes mounts the portal API on r. Reads are public; writes need a
// bearer token and HR-only operations need the HR role.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.Use(auth.Middleware(h.svc.Tokens))

	api.GET("/health", h.Health)
	api.POST("/auth/login", h.Login)
	api.GET("/bgv/checks", h.BGVChecks)
	if h.svc.Stream != nil {
		api.GET("/ws", h.svc.Stream)
	}

	onboarding := api.Group("/onboarding")
	{
		onboarding.GET("/by-id/:candidateId", h.GetStepsByID)
		onboarding.GET("/activities/recent", h.RecentActivities)
		onboarding.GET("/activities/:candidateId", h.CandidateActivities)
		onboarding.GET("/:email", h.GetStepsByEmail)
		onboarding.POST("/step-completed", auth.RequireAuth(), h.StepCompleted)
		onboarding.POST("/:candidateId/step", auth.RequireAuth(), h.UpdateStep)
	}

	candidates := api.Group("/candidates")
	{
		candidates.GET("", auth.RequireHR(), h.ListCandidates)
		candidates.POST("", auth.RequireHR(), h.CreateCandidate)
		candidates.GET("/export", auth.RequireHR(), h.ExportCandidates)
		candidates.GET("/:id", auth.RequireAuth(), h.GetCandidate)
		candidates.GET("/:id/offer-letter", auth.RequireAuth(), h.OfferLetter)
		candidates.PATCH("/:id/progress", auth.RequireHR(), h.UpdateProgress)
	}

	notifications := api.Group("/notifications", auth.RequireAuth())
	{
		notifications.GET("/:userEmail", h.ListNotifications)
		notifications.POST("", h.CreateNotification)
		notifications.PATCH("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/user/:userEmail", h.ClearNotifications)
		notifications.DELETE("/:id", h.DeleteNotification)
	}

	documents := api.Group("/documents", auth.RequireAuth())
	{
		documents.POST("/upload", h.UploadDocument)
		documents.GET("/candidate/:candidateId", h.ListDocuments)
		documents.GET("/:key", h.downloads.Download)
	}
}

// Health pings the database.
func (h *Handler) Health(c *gin.Context) {
	if err := database.HealthCheck(h.svc.DB); err != nil {
		slog.WarnContext(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": h.now().UTC()})
}

func (h *Handler) BGVChecks(c *gin.Context) {
	c.JSON(http.StatusOK, service.BGVChecks(h.now().UTC()))
}

// respondError maps service errors onto HTTP statuses. Unexpected errors are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var denied *model.PermissionDeniedError

	switch {
	case errors.Is(err, service.ErrCandidateNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrStepDataMissing):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrUnknownStep),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, uploads.ErrEmptyFile):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.As(err, &denied):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, uploads.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, uploads.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, offer.ErrMissingTerms):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(status, gin.H{"success": false, "error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}

// optionalInt reads an integer query parameter. A missing parameter yields nil.
func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid '"+name+"' query parameter, must be an integer")
		return nil, false
	}
	return &v, true
}

// actorOf converts the token subject into the actor the step guard checks.
func actorOf(ac *auth.AuthContext) model.Actor {
	return model.Actor{
		ID:    strconv.FormatUint(uint64(ac.UserID), 10),
		Email: ac.Email,
		Role:  ac.Role,
	}
}
