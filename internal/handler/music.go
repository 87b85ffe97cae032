package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/pkg/response"
)

type MusicHandler struct {
	service   *service.MusicService
	validator *validator.Validate
}

func NewMusicHandler(svc *service.MusicService, v *validator.Validate) *MusicHandler {
	return &MusicHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/music/generate
func (h *MusicHandler) Generate(c *fiber.Ctx) error {
	var req model.MusicStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Start(c.UserContext(), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}

// Status handles POST /api/music/status
func (h *MusicHandler) Status(c *fiber.Ctx) error {
	var req model.MusicStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Task ID is required", formatValidationErrors(err))
	}

	result, err := h.service.CheckStatus(c.UserContext(), req.TaskID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}

// Job handles GET /api/music/job?sessionId=
func (h *MusicHandler) Job(c *fiber.Ctx) error {
	job, err := h.service.Job(c.UserContext(), c.Query("sessionId"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, job)
}
