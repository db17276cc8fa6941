package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/background"
	"github.com/BradenHooton/inspireokc/internal/cartoon"
	"github.com/BradenHooton/inspireokc/internal/config"
	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/handlers"
	"github.com/BradenHooton/inspireokc/internal/imagegen"
	middlewareCustom "github.com/BradenHooton/inspireokc/internal/middleware"
	"github.com/BradenHooton/inspireokc/internal/repositories"
	"github.com/BradenHooton/inspireokc/internal/routes"
	"github.com/BradenHooton/inspireokc/internal/services"
	"github.com/BradenHooton/inspireokc/internal/storage"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	deviceRepo := repositories.NewDeviceRepository(db)
	friendRepo := repositories.NewFriendRepository(db)
	adminRepo := repositories.NewAdminRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	limitRepo := repositories.NewGenerationLimitRepository(db)
	uploadRepo := repositories.NewUploadRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Outbound clients
	objectStore, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize object storage", slog.Any("error", err))
		os.Exit(1)
	}
	emailService := newEmailService(ctx, cfg.Email, logger)
	chatClient := services.NewOpenAIClient(cfg.Chat.APIKey, cfg.Chat.BaseURL)
	imageModel := imagegen.NewClient(cfg.ImageGen.Endpoint, cfg.ImageGen.APIKey, cfg.ImageGen.Timeout, logger)

	// Initialize services
	eventService := services.NewEventService(eventRepo, cfg.Limits.IPHashSalt, logger)
	limitService := services.NewGenerationLimitService(limitRepo, friendRepo, adminRepo, time.Now, logger)
	generationService := services.NewGenerationService(limitService, imageModel, eventService, auditLogger, logger)
	friendService := services.NewFriendService(friendRepo, emailService, auditLogger, logger)
	uploadService := services.NewUploadService(objectStore, uploadRepo, cfg.Storage.KeyPrefix, logger)
	chatService := services.NewChatProxyService(chatClient, cfg.Chat.Model, cfg.Chat.SystemPrompt, cfg.Chat.MaxTokens, logger)
	orchestrator := cartoon.New(uploadService, limitService, imageModel, eventService, logger, cartoon.DefaultOptions())
	sessions := fingerprint.NewSessionStore()

	// Bootstrap the first administrator if configured
	if cfg.Auth.BootstrapAdminID != "" {
		bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := adminRepo.Grant(bootstrapCtx, cfg.Auth.BootstrapAdminID, "bootstrap"); err != nil {
			logger.Error("failed to grant bootstrap admin", slog.Any("error", err))
		} else {
			logger.Info("bootstrap admin granted", slog.String("user_id", cfg.Auth.BootstrapAdminID))
		}
		cancel()
	}

	// Initialize handlers
	h := routes.Handlers{
		Limits:       handlers.NewLimitHandler(limitService, logger),
		Generate:     handlers.NewGenerateHandler(generationService, logger),
		Chat:         handlers.NewChatHandler(chatService, logger),
		Fingerprints: handlers.NewFingerprintHandler(deviceRepo, logger),
		Events:       handlers.NewEventHandler(eventService, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}, logger),
		Cartoons:     handlers.NewCartoonHandler(orchestrator, logger),
		Friends:      handlers.NewFriendHandler(friendService, logger),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)

	// Register routes
	routes.RegisterRoutes(router, h, routes.Dependencies{
		TokenManager: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Admins:       adminRepo,
		Sessions:     sessions,
		Cookie: middlewareCustom.CookieConfig{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.CookieDomain,
			Secure:   cfg.Session.CookieSecure,
			SameSite: cfg.Session.SameSite,
		},
		Limits: routes.RateLimits{
			Chat:     cfg.Limits.ChatRequestsPerMinute,
			Generate: cfg.Limits.GenerateRequestsPerMinute,
			Upload:   cfg.Limits.UploadRequestsPerMinute,
		},
		Logger: logger,
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(
		limitRepo,
		eventRepo,
		map[string]background.Sweeper{
			"cartoons": orchestrator,
			"devices":  sessions,
		},
		background.RetentionConfig{
			Interval:       cfg.Cleanup.Interval,
			LimitDays:      cfg.Cleanup.LimitRetentionDays,
			EventDays:      cfg.Cleanup.EventRetentionDays,
			SessionMaxIdle: cfg.Cleanup.SessionMaxIdle,
		},
		logger,
	)
	go cleanupManager.Start(ctx)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn("generations still running at shutdown", slog.Int("sessions", orchestrator.Len()))
	}
	// Runs that outlived the timeout may still record; Close drops those events
	eventService.Close()
	cleanupManager.Stop()

	logger.Info("server stopped gracefully")
}

// newEmailService falls back to logging when SES is not configured
func newEmailService(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) services.EmailService {
	if cfg.FromAddress == "" {
		logger.Info("EMAIL_FROM_ADDRESS not set, friend welcome emails will only be logged")
		return &services.NoopEmailService{Logger: logger}
	}

	ses, err := services.NewAWSSESEmailService(ctx, cfg.AWSRegion, cfg.FromAddress, cfg.SiteURL, logger)
	if err != nil {
		logger.Error("failed to initialize email service, falling back to log only", slog.Any("error", err))
		return &services.NoopEmailService{Logger: logger}
	}
	return ses
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
