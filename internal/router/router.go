package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mysteryforum/forum-api/internal/config"
	"github.com/mysteryforum/forum-api/internal/handler"
	"github.com/mysteryforum/forum-api/internal/middleware"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	FollowHandler       *handler.FollowHandler
	NotificationHandler *handler.NotificationHandler
	ReportHandler       *handler.ReportHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
	BanMiddleware       fiber.Handler
	RateLimitStorage    fiber.Storage
	DependencyChecks    map[string]handler.DependencyCheck
	EnableMetrics       bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg, deps.DependencyChecks))
	if deps.EnableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DependencyChecks))

	// Use provided middlewares, or a no-op if nil
	jwtMiddleware := passThrough(deps.JWTMiddleware)
	banMiddleware := passThrough(deps.BanMiddleware)
	authed := api.Group("", jwtMiddleware, banMiddleware)

	votes := middleware.RateLimit("votes", cfg.RateLimitMax, cfg.RateLimitWindow, deps.RateLimitStorage)
	for _, prefix := range []string{"/posts/upvote", "/posts/downvote", "/comments/upvote", "/comments/downvote"} {
		authed.Use(prefix, votes)
	}

	if deps.PostHandler != nil {
		deps.PostHandler.Register(authed.Group("/posts"))
	}
	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(authed.Group("/comments"))
	}
	if deps.FollowHandler != nil {
		deps.FollowHandler.RegisterUsers(authed)
		deps.FollowHandler.RegisterPosts(authed.Group("/followed-posts"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterDirect(authed.Group("/notifications"))
		deps.NotificationHandler.RegisterFollower(authed.Group("/follower-notifications"))
	}
	if deps.ReportHandler != nil {
		report := authed.Group("/report")
		report.Use("/submit", middleware.RateLimit("reports", cfg.RateLimitMax, cfg.RateLimitWindow, deps.RateLimitStorage))
		deps.ReportHandler.RegisterSubmit(report)
		deps.ReportHandler.RegisterModeration(authed.Group("/reports", middleware.RequireRole(models.RoleAdmin)))
	}
	if deps.ActivityHandler != nil {
		admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
}

func passThrough(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}
