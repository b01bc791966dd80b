package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/database"
	"github.com/vitacoach/coach-backend/internal/handlers"
	"github.com/vitacoach/coach-backend/internal/logging"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/routes"
	"github.com/vitacoach/coach-backend/internal/services"
	"github.com/vitacoach/coach-backend/internal/store"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.StdoutHandler(),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cleanupDone)

	// Store and services
	docStore := store.NewPostgres(db)
	aiClient := services.NewAIClient(cfg)

	authService := services.NewAuthService(db, docStore, cfg)
	onboardingService := services.NewOnboardingService(docStore, aiClient)
	trackingService := services.NewTrackingService(docStore)
	planService := services.NewPlanService(docStore, aiClient)
	insightService := services.NewInsightService(docStore, aiClient, trackingService)
	chatService := services.NewChatService(docStore, aiClient, trackingService, planService)
	dashboardService := services.NewDashboardService(docStore, trackingService, planService, insightService)
	notificationService := services.NewNotificationService(docStore, cfg)
	integrationsService := services.NewIntegrationsService(docStore, aiClient, trackingService)
	appConfigService := services.NewAppConfigService(docStore)

	// Background dispatcher
	scheduler := services.NewScheduler(notificationService)
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, routes.Handlers{
		Health:        handlers.NewHealthHandler(db),
		Auth:          handlers.NewAuthHandler(authService),
		Onboarding:    handlers.NewOnboardingHandler(onboardingService),
		Tracking:      handlers.NewTrackingHandler(trackingService),
		Plans:         handlers.NewPlanHandler(planService),
		Chat:          handlers.NewChatHandler(chatService),
		Insights:      handlers.NewInsightHandler(insightService),
		Dashboard:     handlers.NewDashboardHandler(dashboardService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Integrations:  handlers.NewIntegrationsHandler(integrationsService),
		AppConfig:     handlers.NewAppConfigHandler(appConfigService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	scheduler.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
