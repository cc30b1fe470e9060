package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"taskhub/internal/config"
	"taskhub/internal/middleware"
	"taskhub/internal/web"
)

// NewApp builds the fiber app with middleware, client pages and API routes.
func NewApp(deps *config.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "taskhub",
		ErrorHandler: middleware.ErrorResponder(deps.Config.IsDevelopment()),
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	web.RegisterRoutes(app)
	RegisterRoutes(app, deps)
	return app
}
