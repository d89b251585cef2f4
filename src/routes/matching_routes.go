package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/haze-team/haze-server/src/controllers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func MatchingRoutes(api fiber.Router, deps Deps) {
	matching := api.Group("/matching")
	matching.Get("/stats", controllers.GetMatchingStats(deps.Stats))
}

// MetricsRoutes exposes the Prometheus registry at /metrics
func MetricsRoutes(app *fiber.App, deps Deps) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
}
