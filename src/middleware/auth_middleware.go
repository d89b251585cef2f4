package middleware

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/haze-team/haze-server/src/lib"
)

// LocalUserID is the fiber Locals key holding the authenticated user id
const LocalUserID = "userId"

// ProtectRoute checks for a valid Bearer JWT and attaches the user id to the request context
func ProtectRoute(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - no token provided"))
		}

		token, ok := lib.BearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token format"))
		}

		userID, err := lib.VerifyJWT(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token"))
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// SocketGuard admits WebSocket upgrades. A token may come from the token
// query parameter or a Bearer header; when it does it must be valid. When
// required is false, sockets without a token connect anonymously.
func SocketGuard(secret string, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			token, _ = lib.BearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if token == "" {
			if required {
				return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - no token provided"))
			}
			return c.Next()
		}

		userID, err := lib.VerifyJWT(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token"))
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id of the request, or ""
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(LocalUserID).(string)
	return userID
}
