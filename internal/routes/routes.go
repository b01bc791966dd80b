package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/handlers"
	"github.com/vitacoach/coach-backend/internal/middleware"
)

type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Onboarding    *handlers.OnboardingHandler
	Tracking      *handlers.TrackingHandler
	Plans         *handlers.PlanHandler
	Chat          *handlers.ChatHandler
	Insights      *handlers.InsightHandler
	Dashboard     *handlers.DashboardHandler
	Notifications *handlers.NotificationHandler
	Integrations  *handlers.IntegrationsHandler
	AppConfig     *handlers.AppConfigHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health and public app config
	api.Get("/health", h.Health.Check)
	api.Get("/config", h.AppConfig.List)
	api.Get("/config/:key", h.AppConfig.Get)

	// Auth — public, with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)

	// Auth — protected
	api.Post("/auth/refresh", middleware.JWTProtected(cfg), h.Auth.Refresh)
	api.Get("/auth/verify", middleware.JWTProtected(cfg), h.Auth.Verify)
	api.Get("/auth/profile", middleware.JWTProtected(cfg), h.Auth.GetProfile)
	api.Put("/auth/profile", middleware.JWTProtected(cfg), h.Auth.UpdateProfile)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), h.Auth.DeleteAccount)

	// Admin surface, gated on the operator token alone. Registered
	// before the JWT guard so the bearer-token middleware never sees
	// these paths.
	admin := api.Group("/admin", middleware.AdminRequired(cfg))
	admin.Put("/config/:key", h.AppConfig.Set)
	admin.Patch("/config/:key", h.AppConfig.Patch)
	admin.Delete("/config/:key", h.AppConfig.Delete)
	admin.Post("/notifications/bulk", h.Notifications.SendBulk)
	admin.Post("/notifications/dispatch", h.Notifications.DispatchDue)

	// Everything below requires a valid token
	protected := api.Group("", middleware.JWTProtected(cfg))

	onboarding := protected.Group("/onboarding")
	onboarding.Post("/complete", h.Onboarding.Complete)
	onboarding.Put("/update", h.Onboarding.Update)
	onboarding.Post("/analyze", h.Onboarding.Analyze)
	onboarding.Get("/status", h.Onboarding.Status)

	tracking := protected.Group("/tracking")
	tracking.Post("/", h.Tracking.Log)
	tracking.Post("/meals", h.Tracking.LogMeal)
	tracking.Post("/exercises", h.Tracking.LogExercise)
	tracking.Get("/history", h.Tracking.History)
	tracking.Get("/stats", h.Tracking.Stats)
	tracking.Get("/:date", h.Tracking.GetDay)
	tracking.Delete("/:date", h.Tracking.DeleteDay)

	plans := protected.Group("/plans")
	plans.Post("/", h.Plans.Create)
	plans.Get("/", h.Plans.List)
	plans.Get("/active", h.Plans.Active)
	plans.Get("/today", h.Plans.Today)
	plans.Get("/:id", h.Plans.Get)
	plans.Post("/:id/activate", h.Plans.Activate)
	plans.Delete("/:id", h.Plans.Delete)

	chat := protected.Group("/chat")
	chat.Post("/", h.Chat.Send)
	chat.Get("/sessions", h.Chat.ListSessions)
	chat.Get("/sessions/:id", h.Chat.GetSession)
	chat.Delete("/sessions/:id", h.Chat.DeleteSession)

	ml := protected.Group("/ml")
	ml.Post("/insights/daily", h.Insights.Daily)
	ml.Get("/insights", h.Insights.List)
	ml.Get("/next-steps", h.Insights.NextSteps)
	ml.Post("/predict", h.Insights.Predict)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/", h.Dashboard.Overview)
	dashboard.Get("/streak", h.Dashboard.Streak)

	notifications := protected.Group("/notifications")
	notifications.Post("/device", h.Notifications.RegisterDevice)
	notifications.Post("/send", h.Notifications.Send)
	notifications.Get("/history", h.Notifications.History)
	notifications.Get("/unread", h.Notifications.UnreadCount)
	notifications.Post("/schedule", h.Notifications.ScheduleDaily)
	notifications.Put("/preferences", h.Notifications.UpdatePreferences)
	notifications.Put("/:id/read", h.Notifications.MarkRead)
	notifications.Delete("/:id", h.Notifications.Delete)

	integrations := protected.Group("/integrations")
	integrations.Post("/nutrition", h.Integrations.Nutrition)
	integrations.Post("/exercise", h.Integrations.Exercise)
	integrations.Post("/wearables/sync", h.Integrations.SyncWearable)
	integrations.Post("/weather", h.Integrations.Weather)
	integrations.Post("/trends", h.Integrations.Trends)
	integrations.Post("/research", h.Integrations.Research)
	integrations.Post("/search", h.Integrations.WebSearch)
}
