package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/pkg/response"
)

type VerseHandler struct {
	service   *service.VerseService
	validator *validator.Validate
}

func NewVerseHandler(svc *service.VerseService, v *validator.Validate) *VerseHandler {
	return &VerseHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/verse/generate
func (h *VerseHandler) Generate(c *fiber.Ctx) error {
	var req model.VerseGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Generate(c.UserContext(), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}
