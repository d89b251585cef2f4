package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/matching"
)

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": version,
		})
	}
}

// StatsSource reports the matching pool sizes
type StatsSource interface {
	Stats() matching.Stats
}

// GetMatchingStats returns how many users are online, waiting, introduced and in a webchat
func GetMatchingStats(engine StatsSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(engine.Stats())
	}
}
