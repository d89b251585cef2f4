package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/middleware"
	"github.com/haze-team/haze-server/src/socket"
)

// SocketRoutes mounts the realtime endpoint. Tokens are optional unless
// required is set.
func SocketRoutes(app *fiber.App, server *socket.Server, secret string, required bool) {
	app.Get("/ws", middleware.SocketGuard(secret, required), server.Handler())
}
