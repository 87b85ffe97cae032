package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/config"
	"github.com/versesong/api/internal/model"
)

// MusicGenerator defines the interface for music generation operations
type MusicGenerator interface {
	GenerateMusic(ctx context.Context, req *GenerateMusicRequest) (*GenerateMusicResult, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	IsConfigured() bool
}

// SunoClient implements MusicGenerator for the apibox Suno API
type SunoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// GenerateMusicRequest is the body of POST /api/v1/generate
type GenerateMusicRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	CallBackURL  string `json:"callBackUrl"`
}

// GenerateMusicResult is either an accepted task or, rarely, a finished song.
type GenerateMusicResult struct {
	TaskID string
	Song   *model.Song
}

// TaskStatus is the provider's view of a task.
type TaskStatus struct {
	Completed bool
	Song      *model.Song
	Progress  string
}

// apiEnvelope wraps every provider response
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type generateData struct {
	TaskID      string `json:"task_id"`
	TaskIDCamel string `json:"taskId"`
}

type statusData struct {
	Status       string          `json:"status"`
	CallbackType string          `json:"callbackType"`
	Progress     string          `json:"progress"`
	Data         json.RawMessage `json:"data"`
	Songs        json.RawMessage `json:"songs"`
}

// NewSunoClient creates a new Suno API client
func NewSunoClient(cfg *config.SunoConfig) *SunoClient {
	return &SunoClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateMusic starts a generation task. A response without a task id is
// still accepted; the task id is then "unknown".
func (c *SunoClient) GenerateMusic(ctx context.Context, req *GenerateMusicRequest) (*GenerateMusicResult, error) {
	env, err := c.post(ctx, "/api/v1/generate", req)
	if err != nil {
		return nil, err
	}

	var data generateData
	if len(env.Data) > 0 && env.Data[0] == '{' {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperr.Wrap(apperr.KindParse, "Invalid response format from music generation service", err)
		}
	}
	taskID := data.TaskID
	if taskID == "" {
		taskID = data.TaskIDCamel
	}
	if taskID == "" {
		if song, _ := model.ExtractSong(env.Data); song != nil {
			return &GenerateMusicResult{Song: song}, nil
		}
		log.Warn().Str("response", string(env.Data)).Msg("[Suno API] accepted without a task id")
		taskID = "unknown"
	}
	return &GenerateMusicResult{TaskID: taskID}, nil
}

// GetTaskStatus asks the provider directly about a task
func (c *SunoClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	env, err := c.get(ctx, "/api/v1/status/"+url.PathEscape(taskID))
	if err != nil {
		return nil, err
	}

	var data statusData
	if len(env.Data) > 0 && env.Data[0] == '{' {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperr.Wrap(apperr.KindParse, "Invalid status response from music generation service", err)
		}
	}

	status := &TaskStatus{Progress: data.Progress}
	if data.Status == "completed" || data.CallbackType == "complete" {
		songs := data.Data
		if len(bytes.TrimSpace(songs)) == 0 || string(songs) == "null" {
			songs = data.Songs
		}
		if song, _ := model.ExtractSong(songs); song != nil {
			status.Completed = true
			status.Song = song
		}
	}
	return status, nil
}

// post sends a POST request with JSON body
func (c *SunoClient) post(ctx context.Context, endpoint string, body interface{}) (*apiEnvelope, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req)
}

// get sends a GET request and parses the JSON envelope
func (c *SunoClient) get(ctx context.Context, endpoint string) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req)
}

// doRequest executes an HTTP request and classifies every failure
func (c *SunoClient) doRequest(req *http.Request) (*apiEnvelope, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("[Suno API] →")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("[Suno API] ✗ request failed")
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindNetwork, "Unable to connect to music generation service", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "Failed to read music generation response", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("body", string(respBody)).
		Msg("[Suno API] ←")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		log.Error().Err(err).Str("body", string(respBody)).Msg("[Suno API] ✗ unmarshal error")
		return nil, apperr.Wrap(apperr.KindParse, "Invalid response format from music generation service", err)
	}

	if env.Code != http.StatusOK {
		return nil, apperr.New(apperr.KindService, fmt.Sprintf("Suno API error (code %d): %s", env.Code, env.Msg))
	}
	return &env, nil
}

func statusError(status int, body []byte) error {
	cause := fmt.Errorf("suno API error (status %d): %s", status, string(body))
	switch status {
	case http.StatusUnauthorized:
		return apperr.Wrap(apperr.KindAuth, "Invalid API key. Please check your music generation API key configuration.", cause)
	case http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimited, "Rate limit exceeded. Please wait a moment and try again.", cause)
	default:
		return apperr.Wrap(apperr.KindService, fmt.Sprintf("Music generation failed with status %d", status), cause)
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *SunoClient) IsConfigured() bool {
	return c.apiKey != ""
}
