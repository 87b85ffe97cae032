package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/model"
)

// APIClient talks to a running verse-to-song server. The CLI and the
// session poller use it.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewAPIClient creates a client for the server at baseURL
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

type notificationBody struct {
	model.Notification
	Status string `json:"status"`
}

// GenerateVerse calls POST /api/verse/generate
func (c *APIClient) GenerateVerse(ctx context.Context, req *model.VerseGenerateRequest) (*model.VerseGenerateResponse, error) {
	var resp model.VerseGenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/verse/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartMusic calls POST /api/music/generate
func (c *APIClient) StartMusic(ctx context.Context, req *model.MusicStartRequest) (*model.MusicStartResponse, error) {
	var resp model.MusicStartResponse
	if err := c.do(ctx, http.MethodPost, "/api/music/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch takes the session's pending notification, or returns nil.
func (c *APIClient) Fetch(ctx context.Context, sessionID string) (*model.Notification, error) {
	return c.fetch(ctx, sessionID, 0)
}

// Wait is Fetch with a server-side long poll of up to wait.
func (c *APIClient) Wait(ctx context.Context, sessionID string, wait time.Duration) (*model.Notification, error) {
	return c.fetch(ctx, sessionID, wait)
}

func (c *APIClient) fetch(ctx context.Context, sessionID string, wait time.Duration) (*model.Notification, error) {
	query := url.Values{"sessionId": {sessionID}}
	if wait > 0 {
		query.Set("wait", strconv.FormatFloat(wait.Seconds(), 'f', -1, 64))
	}

	var body notificationBody
	if err := c.do(ctx, http.MethodGet, "/api/notifications?"+query.Encode(), nil, &body); err != nil {
		return nil, err
	}
	if body.Status == "no_notification" {
		return nil, nil
	}
	return &body.Notification, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("the server", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError("the server", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorBody
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Type != "" {
			return apperr.New(apperr.Kind(errResp.Type), errResp.Error)
		}
		return apperr.New(apperr.KindService, fmt.Sprintf("server error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Wrap(apperr.KindParse, "invalid response from server", err)
	}
	return nil
}
