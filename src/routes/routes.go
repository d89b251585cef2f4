package routes

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/haze-team/haze-server/src/controllers"
	"github.com/haze-team/haze-server/src/lib"
	"github.com/haze-team/haze-server/src/services"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps are the handlers' collaborators
type Deps struct {
	BlockLogs *services.BlockLogService
	Reports   *services.ReportService
	Logs      *services.LogService
	Stats     controllers.StatsSource
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger

	JWTSecret       string
	Version         string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// APIRoutes mounts the /api group with its request throttle
func APIRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        deps.RateLimitMax,
		Expiration: deps.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(lib.MessageResponse("Too many requests, please try again later"))
		},
	}))

	api.Get("/health", controllers.Health)
	api.Get("/version", controllers.Version(deps.Version))

	MatchingRoutes(api, deps)
	BlockLogRoutes(api, deps)
	ReportRoutes(api, deps)
	LogRoutes(api, deps)
}
