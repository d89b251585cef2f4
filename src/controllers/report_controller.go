package controllers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/lib"
	"github.com/haze-team/haze-server/src/middleware"
	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/services"
)

// ReportUser reports another user outside of a live webchat
func ReportUser(reports *services.ReportService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body targetRequest
		if err := c.BodyParser(&body); err != nil || body.TargetID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("targetId is required"))
		}
		if body.TargetID == userID {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("You can't report yourself"))
		}

		if err := reports.ReportUser(c.UserContext(), userID, body.TargetID); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("User not found"))
			}
			logger.Error("error reporting user", "user", userID, "target", body.TargetID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
		}
		return c.Status(fiber.StatusCreated).JSON(lib.MessageResponse("User reported successfully"))
	}
}
