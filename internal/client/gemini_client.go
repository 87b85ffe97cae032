package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/config"
	"google.golang.org/genai"
)

// GeminiClient generates text with the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. Without an API key the client is
// returned unconfigured and every call fails with a config error.
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	c := &GeminiClient{model: cfg.Model}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

// IsConfigured returns true if the client has valid configuration
func (c *GeminiClient) IsConfigured() bool {
	return c.client != nil
}

// GenerateText sends one prompt and returns the trimmed response text
func (c *GeminiClient) GenerateText(ctx context.Context, req *TextRequest) (string, error) {
	if c.client == nil {
		return "", apperr.New(apperr.KindConfig, "Google Gemini API key missing. Please set GOOGLE_GENERATIVE_AI_API_KEY.")
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}

	log.Debug().Str("model", c.model).Int("promptLength", len(req.Prompt)).Msg("[Gemini API] →")

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("[Gemini API] ✗ request failed")
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", classifyTextError(apiErr.Code, apiErr.Message+" "+apiErr.Status, err)
		}
		return "", transportError("the text generation service", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", apperr.New(apperr.KindParse, "The text generation service returned no content.")
	}

	log.Debug().Str("model", c.model).Int("length", len(text)).Msg("[Gemini API] ←")
	return text, nil
}
