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

type targetRequest struct {
	TargetID string `json:"targetId"`
}

// GetMyBlockLog returns the authenticated user's block list, creating an empty one on first use
func GetMyBlockLog(blockLogs *services.BlockLogService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		blockLog, err := blockLogs.FindBlockLog(c.UserContext(), userID)
		if err != nil {
			logger.Error("error finding block log", "user", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
		}
		return c.JSON(blockLog)
	}
}

// BlockUser adds the target to the authenticated user's block list
func BlockUser(blockLogs *services.BlockLogService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body targetRequest
		if err := c.BodyParser(&body); err != nil || body.TargetID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("targetId is required"))
		}

		blockLog, err := blockLogs.BlockUser(c.UserContext(), userID, body.TargetID)
		if err != nil {
			return blockLogError(c, logger, "block", err)
		}
		return c.JSON(blockLog)
	}
}

// UnblockUser removes the target from the authenticated user's block list
func UnblockUser(blockLogs *services.BlockLogService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body targetRequest
		if err := c.BodyParser(&body); err != nil || body.TargetID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("targetId is required"))
		}

		blockLog, err := blockLogs.UnblockUser(c.UserContext(), userID, body.TargetID)
		if err != nil {
			return blockLogError(c, logger, "unblock", err)
		}
		return c.JSON(blockLog)
	}
}

func blockLogError(c *fiber.Ctx, logger *slog.Logger, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrSelfBlock):
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("You can't block yourself"))
	case errors.Is(err, models.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("User not found"))
	case errors.Is(err, models.ErrBlockLogNotFound):
		return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Block log not found"))
	}
	logger.Error("error updating block log", "action", action, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
}
