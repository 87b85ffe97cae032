package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/model"
)

const (
	MaxIdeaLength = 500

	verseTemperature = 0.8
	verseMaxTokens   = 200
)

// VerseService turns a short idea into a poetic verse
type VerseService struct {
	text client.TextGenerator
}

func NewVerseService(text client.TextGenerator) *VerseService {
	return &VerseService{text: text}
}

// BuildVersePrompt returns the prompt for idea. A regenerate request asks
// for a version different from earlier attempts.
func BuildVersePrompt(idea string, regenerate bool) string {
	if regenerate {
		return fmt.Sprintf("Create a different poetic verse based on this idea: %q. "+
			"Make it creative, emotional, and suitable for music. Focus on imagery, rhythm, and feeling. "+
			"Make this version different from any previous attempts. Keep it between 4-8 lines.", idea)
	}
	return fmt.Sprintf("Create a beautiful, poetic verse based on this idea: %q. "+
		"Make it creative, emotional, and suitable for music. Focus on imagery, rhythm, and feeling. "+
		"The verse should be 4-8 lines long and have a good rhythm for singing.", idea)
}

// Generate produces a verse for the request's idea
func (s *VerseService) Generate(ctx context.Context, req *model.VerseGenerateRequest) (*model.VerseGenerateResponse, error) {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return nil, apperr.Validation("Idea is required")
	}
	if utf8.RuneCountInString(idea) > MaxIdeaLength {
		return nil, apperr.Validation("Idea is too long. Please keep it under 500 characters.")
	}
	if !s.text.IsConfigured() {
		return nil, apperr.New(apperr.KindConfig, "Text generation API key missing. Please configure the "+s.text.Name()+" provider.")
	}

	verse, err := s.text.GenerateText(ctx, &client.TextRequest{
		Prompt:      BuildVersePrompt(idea, req.Regenerate),
		Temperature: verseTemperature,
		MaxTokens:   verseMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", s.text.Name()).Msg("verse generation failed")
		return nil, apperr.From(err, apperr.KindService, "Failed to generate verse. Please try again in a few moments.")
	}

	return &model.VerseGenerateResponse{Verse: strings.TrimSpace(verse)}, nil
}
