package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/config"
)

func TestClassifyTextError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		status  int
		message string
		kind    apperr.Kind
	}{
		{http.StatusTooManyRequests, "Resource has been exhausted (e.g. check quota).", apperr.KindQuota},
		{http.StatusBadRequest, "API key not valid. Please pass a valid API key.", apperr.KindAuth},
		{http.StatusForbidden, "permission denied", apperr.KindAuth},
		{http.StatusTooManyRequests, "slow down", apperr.KindRateLimited},
		{http.StatusOK, "hit the rate limit", apperr.KindRateLimited},
		{http.StatusInternalServerError, "internal", apperr.KindService},
	}
	for _, tt := range tests {
		err := classifyTextError(tt.status, tt.message, cause)
		assert.Equal(t, tt.kind, apperr.KindOf(err), tt.message)
		assert.ErrorIs(t, err, cause)
	}
}

func TestTransportError_KeepsCancellation(t *testing.T) {
	assert.ErrorIs(t, transportError("x", context.Canceled), context.Canceled)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(transportError("x", errors.New("dial tcp"))))
}

func TestGroqClient_GenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 200, req.MaxTokens)
		assert.Equal(t, "user", req.Messages[0].Role)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  four quiet lines  "}}]}`))
	}))
	defer srv.Close()

	c := NewGroqClient(&config.GroqConfig{APIKey: "k", BaseURL: srv.URL + "/", Model: "m"})
	text, err := c.GenerateText(context.Background(), &TextRequest{Prompt: "p", Temperature: 0.8, MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, "four quiet lines", text)
}

func TestGroqClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewGroqClient(&config.GroqConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.GenerateText(context.Background(), &TextRequest{Prompt: "p"})
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	unconfigured := NewGroqClient(&config.GroqConfig{})
	_, err = unconfigured.GenerateText(context.Background(), &TextRequest{Prompt: "p"})
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
}

func TestGeminiClient_Unconfigured(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), &config.GeminiConfig{Model: "gemini-1.5-flash"})
	require.NoError(t, err)
	assert.False(t, c.IsConfigured())

	_, err = c.GenerateText(context.Background(), &TextRequest{Prompt: "p"})
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
}
