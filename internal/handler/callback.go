package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/pkg/response"
)

type CallbackHandler struct {
	service *service.CallbackService
}

func NewCallbackHandler(svc *service.CallbackService) *CallbackHandler {
	return &CallbackHandler{service: svc}
}

// Receive handles POST /api/music/callback?sessionId=
func (h *CallbackHandler) Receive(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer after the handler returns
	body := append([]byte(nil), c.Body()...)

	ack, err := h.service.Receive(c.UserContext(), c.Query("sessionId"), c.Query("token"), body)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, ack)
}

// Echo handles GET /api/music/callback so the URL can be checked by hand
func (h *CallbackHandler) Echo(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"message":   "Callback endpoint is working",
		"sessionId": c.Query("sessionId"),
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"method":    "GET",
	})
}
