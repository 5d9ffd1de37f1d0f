package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/config"
	"github.com/onboardhr/onboarding/internal/database"
	"github.com/onboardhr/onboarding/internal/logging"
	"github.com/onboardhr/onboarding/internal/mailer"
	"github.com/onboardhr/onboarding/internal/middleware"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/portal/router"
	"github.com/onboardhr/onboarding/internal/portal/service"
	"github.com/onboardhr/onboarding/internal/realtime"
	"github.com/onboardhr/onboarding/internal/uploads"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel)

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
		"storage", cfg.Storage.Type,
		"mail", cfg.Mail.Driver,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allowed_headers", cfg.CORS.AllowedHeaders,
		"allow_credentials", cfg.CORS.AllowCredentials,
		"max_age", cfg.CORS.MaxAge,
	)

	ctx := context.Background()

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}
	if err := database.Migrate(db, portalmodel.All()...); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	storage, err := uploads.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize document storage: %v", err)
	}
	uploadService := uploads.NewUploadService(storage)

	mail, err := mailer.NewFromConfig(ctx, cfg.Mail)
	if err != nil {
		log.Fatalf("failed to initialize mailer: %v", err)
	}
	templates := mailer.NewTemplates(cfg.Onboarding.CompanyName, cfg.Mail.PortalURL)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	hub := realtime.NewHub(tokens, cfg.CORS.AllowedOrigins)
	catalog := registry.Default()

	users := service.NewUserService(db, tokens)
	if cfg.Seed.HREmail != "" {
		if err := users.EnsureStaffUser(ctx, cfg.Seed.HREmail, cfg.Seed.HRPassword, model.RoleHR, "HR", "Team"); err != nil {
			log.Fatalf("failed to seed HR account: %v", err)
		}
	}

	handler := router.NewHandler(router.Services{
		DB:            db,
		Catalog:       catalog,
		Onboarding:    service.NewOnboardingService(db, catalog, hub, mail, templates),
		Candidates:    service.NewCandidateService(db, catalog, mail, templates),
		Users:         users,
		Notifications: service.NewNotificationService(db),
		Documents:     service.NewDocumentService(db, uploadService),
		Uploads:       uploadService,
		Tokens:        tokens,
		Stream:        hub.ServeWS,
		CompanyName:   cfg.Onboarding.CompanyName,
	})

	if logging.ParseLevel(cfg.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.RequestLogger(), middleware.CORS(&cfg.CORS))
	handler.RegisterRoutes(engine)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: engine,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port, "service_url", cfg.Server.ServiceURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	hub.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
