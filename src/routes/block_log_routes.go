package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/controllers"
	"github.com/haze-team/haze-server/src/middleware"
)

// BlockLogRoutes sets up the routes that read and edit the authenticated user's block list
func BlockLogRoutes(api fiber.Router, deps Deps) {
	blockLogs := api.Group("/block-logs", middleware.ProtectRoute(deps.JWTSecret))

	blockLogs.Get("/me", controllers.GetMyBlockLog(deps.BlockLogs, deps.Logger))
	blockLogs.Post("/block", controllers.BlockUser(deps.BlockLogs, deps.Logger))
	blockLogs.Post("/unblock", controllers.UnblockUser(deps.BlockLogs, deps.Logger))
}

func ReportRoutes(api fiber.Router, deps Deps) {
	reports := api.Group("/reports", middleware.ProtectRoute(deps.JWTSecret))
	reports.Post("/", controllers.ReportUser(deps.Reports, deps.Logger))
}

func LogRoutes(api fiber.Router, deps Deps) {
	logs := api.Group("/logs", middleware.ProtectRoute(deps.JWTSecret))
	logs.Get("/", controllers.GetLogs(deps.Logs, deps.Logger))
}
