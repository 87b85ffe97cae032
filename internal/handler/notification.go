package handler

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/pkg/response"
)

type NotificationHandler struct {
	service   *service.NotificationService
	validator *validator.Validate
}

func NewNotificationHandler(svc *service.NotificationService, v *validator.Validate) *NotificationHandler {
	return &NotificationHandler{
		service:   svc,
		validator: v,
	}
}

// Post handles POST /api/notifications
func (h *NotificationHandler) Post(c *fiber.Ctx) error {
	var req model.NotificationPostRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.Post(c.UserContext(), &req); err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, fiber.Map{"status": "stored"})
}

// Get handles GET /api/notifications?sessionId=&wait=
func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return response.MissingSession(c)
	}

	var wait time.Duration
	if raw := c.Query("wait"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			return response.ValidationError(c, "wait must be a non-negative number of seconds", nil)
		}
		wait = time.Duration(seconds * float64(time.Second))
	}

	n, err := h.service.Take(c.UserContext(), sessionID, wait)
	if err != nil {
		return response.FromError(c, err)
	}
	if n == nil {
		return response.OK(c, fiber.Map{"status": "no_notification"})
	}

	return response.OK(c, n)
}
