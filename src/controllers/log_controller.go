package controllers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/lib"
	"github.com/haze-team/haze-server/src/services"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// GetLogs lists the most recent activity logs. ?limit= caps the result.
func GetLogs(logs *services.LogService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLogLimit)
		if limit <= 0 || limit > maxLogLimit {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("limit must be between 1 and 500"))
		}

		entries, err := logs.FindAll(c.UserContext(), int64(limit))
		if err != nil {
			logger.Error("error listing logs", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
		}
		return c.JSON(fiber.Map{
			"data": entries,
		})
	}
}
