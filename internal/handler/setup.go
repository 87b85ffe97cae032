package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/pkg/response"
)

// SetupHandler reports which providers have credentials
type SetupHandler struct {
	text  client.TextGenerator
	music client.MusicGenerator
}

func NewSetupHandler(text client.TextGenerator, music client.MusicGenerator) *SetupHandler {
	return &SetupHandler{text: text, music: music}
}

func (h *SetupHandler) services() fiber.Map {
	return fiber.Map{
		"text":  h.text.IsConfigured(),
		"music": h.music.IsConfigured(),
	}
}

// Setup handles GET /api/setup
func (h *SetupHandler) Setup(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"configured":   h.text.IsConfigured() && h.music.IsConfigured(),
		"textProvider": h.text.Name(),
		"services":     h.services(),
	})
}

// Health handles GET /health
func (h *SetupHandler) Health(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"status":   "ok",
		"services": h.services(),
	})
}
