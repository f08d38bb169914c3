package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler         *handler.QuestionHandler
	AdminAssignmentHandler  *handler.AdminAssignmentHandler
	AdminGradingHandler     *handler.AdminGradingHandler
	AdminStudentHandler     *handler.AdminStudentHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	AdminAnalyticsHandler   *handler.AdminAnalyticsHandler
	AssignmentHandler       *handler.AssignmentHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	JWTMiddleware           fiber.Handler
	SubmitLimiter           fiber.Handler
	HealthProbes            map[string]func(context.Context) error
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions", jwtMiddleware, middleware.RequireStaff()))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireStaff())
	if deps.AdminAssignmentHandler != nil {
		deps.AdminAssignmentHandler.Register(admin.Group("/assignments"))
	}
	if deps.AdminGradingHandler != nil {
		deps.AdminGradingHandler.Register(admin.Group("/submissions"))
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
	if deps.AdminAnalyticsHandler != nil {
		deps.AdminAnalyticsHandler.Register(admin.Group("/analytics"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities", middleware.RequireRole(models.RoleAdmin)))
	}

	if deps.AssignmentHandler != nil {
		submitGuards := []fiber.Handler{middleware.RequireRole(models.RoleStudent)}
		if deps.SubmitLimiter != nil {
			submitGuards = append(submitGuards, deps.SubmitLimiter)
		}
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware), submitGuards...)
	}

	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(api.Group("/student", jwtMiddleware))
	}
}
