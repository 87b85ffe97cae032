package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/config"
)

// GroqClient generates text with the OpenAI-compatible Groq API
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	return &GroqClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

func (c *GroqClient) Name() string {
	return "groq"
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}

// GenerateText sends the prompt as a single user message
func (c *GroqClient) GenerateText(ctx context.Context, req *TextRequest) (string, error) {
	if c.apiKey == "" {
		return "", apperr.New(apperr.KindConfig, "Groq API key missing. Please set GROQ_API_KEY.")
	}

	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    []ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Debug().Str("model", c.model).Msg("[Groq API] →")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Msg("[Groq API] ✗ request failed")
		return "", transportError("the text generation service", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError("the text generation service", err)
	}

	log.Debug().Int("status", resp.StatusCode).Msg("[Groq API] ←")

	if resp.StatusCode != http.StatusOK {
		var errResp groqErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		cause := fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
		return "", classifyTextError(resp.StatusCode, errResp.Error.Message, cause)
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", apperr.Wrap(apperr.KindParse, "Invalid response format from the text generation service", err)
	}

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", apperr.New(apperr.KindParse, "The text generation service returned no content.")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
