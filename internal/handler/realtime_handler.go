package handler

import (
	"context"
	"strings"

	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/serverutils"
	internalWS "lifestory-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type RealtimeHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewRealtimeHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// tokenFrom prefers the query param, which is all a browser can send on
// the handshake, and falls back to the Authorization header.
func tokenFrom(c *fiber.Ctx) string {
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// Room membership is requested later over the socket.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := tokenFrom(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "missing token"))
	}

	principal, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("RealtimeHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	member := internalWS.Member{UserID: principal.UserID, IsAdmin: principal.IsAdmin()}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"user_id": member.UserID})
		// The fiber context is recycled once the connection is hijacked.
		internalWS.ServeWs(context.Background(), h.hub, conn, member)
		h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"user_id": member.UserID})
	})(c)
}

func (h *RealtimeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
