package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlugStatic answers paths under the given prefixes with a JSON 404 instead of letting
// them fall through to the static file handler. Registered after the API routes it
// catches unknown /api/* paths; it also swallows /.well-known/* lookups.
func PlugStatic(prefixes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		for _, prefix := range prefixes {
			if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Not found",
				})
			}
		}

		return c.Next()
	}
}
