package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	ws "github.com/versesong/api/internal/websocket"
	"github.com/versesong/api/pkg/response"
)

type StreamHandler struct {
	hub *ws.Hub
}

func NewStreamHandler(hub *ws.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Upgrade rejects plain HTTP requests on websocket routes
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		if c.Params("sessionId") == "" {
			return response.MissingSession(c)
		}
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Notifications handles GET /ws/notifications/:sessionId
func (h *StreamHandler) Notifications() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.hub.HandleConnection(c, c.Params("sessionId"))
	})
}
