// Package web serves the browser client. Pages gate themselves on the token
// kept in localStorage; the server never sees that check.
package web

import (
	"embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed pages/*.html
var pages embed.FS

func RegisterRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard", fiber.StatusFound)
	})
	app.Get("/dashboard", page("pages/dashboard.html"))
	app.Get("/auth/login", page("pages/login.html"))
}

func page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := pages.ReadFile(name)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Type("html", "utf-8")
		return c.Send(body)
	}
}
