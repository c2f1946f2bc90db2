package api

import (
	"github.com/gofiber/fiber/v2"

	"docsum/types"
)

type CheckHandler struct{}

func NewCheckHandler() *CheckHandler {
	return &CheckHandler{}
}

// HandleHealth reports liveness. It never touches the pipeline or its dependencies.
func (h CheckHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(types.HealthResponse{Status: "ok"})
}
