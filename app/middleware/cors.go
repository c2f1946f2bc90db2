package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS sets the permissive cross-origin headers on every response and answers
// preflight requests with 204.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		SetCORSHeaders(c)

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// SetCORSHeaders writes the cross-origin headers. Also called from the error handler,
// which runs for requests rejected before routing.
func SetCORSHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")
}
