package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/versesong/api/internal/apperr"
)

// TextRequest is a single-prompt completion request.
type TextRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// TextGenerator produces text from a prompt. Errors are *apperr.Error.
type TextGenerator interface {
	GenerateText(ctx context.Context, req *TextRequest) (string, error)
	IsConfigured() bool
	Name() string
}

// classifyTextError maps a provider failure onto an error kind. Providers
// report quota and key problems inconsistently, so the message is checked
// as well as the status code.
func classifyTextError(status int, message string, cause error) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "exceeded"):
		return apperr.Wrap(apperr.KindQuota, "API quota exceeded. Please check the provider account and try again later.", cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "api key"):
		return apperr.Wrap(apperr.KindAuth, "Invalid API key. Please check the text generation API key configuration.", cause)
	case status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit"):
		return apperr.Wrap(apperr.KindRateLimited, "Rate limit exceeded. Please wait a moment and try again.", cause)
	default:
		return apperr.Wrap(apperr.KindService, "Failed to generate verse. Please try again in a few moments.", cause)
	}
}

func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Wrap(apperr.KindNetwork, "Unable to connect to "+provider, err)
}
