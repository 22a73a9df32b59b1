package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edulens/quizfeedback-api/internal/config"
	"github.com/edulens/quizfeedback-api/internal/handler"
	"github.com/edulens/quizfeedback-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QueryHandler    *handler.QueryHandler
	FeedbackHandler *handler.FeedbackHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Use(middleware.CorrelationID())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	courses := api.Group("/courses/:id")
	if deps.QueryHandler != nil {
		deps.QueryHandler.Register(courses)
	}
	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.Register(courses)
	}
}
