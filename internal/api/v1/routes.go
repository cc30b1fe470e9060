package v1

import (
	"github.com/gofiber/fiber/v2"

	"taskhub/internal/api/v1/handlers"
	"taskhub/internal/config"
	"taskhub/internal/middleware"
)

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	authn := middleware.NewAuthenticator(deps.Tokens, deps.Users)
	authHandler := handlers.NewAuthHandler(deps)
	taskHandler := handlers.NewTaskHandler(deps)
	eventsHandler := handlers.NewEventsHandler(deps)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api/v1")

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/me", authn.Protect(authHandler.Me))

	// Task; /events must precede /:id
	taskRoutes := api.Group("/task")
	taskRoutes.Post("/", authn.Protect(taskHandler.Create))
	taskRoutes.Get("/", authn.Protect(taskHandler.List))
	taskRoutes.Get("/events", authn.ProtectSocket(eventsHandler.Stream))
	taskRoutes.Get("/:id", authn.Protect(taskHandler.Get))
	taskRoutes.Put("/:id", authn.Protect(taskHandler.Update))
	taskRoutes.Patch("/:id", authn.Protect(taskHandler.Update))
	taskRoutes.Delete("/:id", authn.Protect(taskHandler.Delete))
}
