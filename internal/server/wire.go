package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/auth"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/config"
	"github.com/versesong/api/internal/middleware"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/service"
	"github.com/versesong/api/internal/store"
	ws "github.com/versesong/api/internal/websocket"
)

// Backends are the storage pieces chosen by the caller
type Backends struct {
	Notifications store.NotificationStore
	Jobs          store.JobStore
	Counter       middleware.Counter
	// Archive may be nil when song archiving is off
	Archive service.ArchiveEnqueuer
}

// NewTextGenerator picks the configured verse provider
func NewTextGenerator(ctx context.Context, cfg *config.Config) (client.TextGenerator, error) {
	switch cfg.Text.Provider {
	case config.TextProviderGroq:
		return client.NewGroqClient(&cfg.Groq), nil
	case config.TextProviderGemini, "":
		return client.NewGeminiClient(ctx, &cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown text provider %q", cfg.Text.Provider)
	}
}

// NewDeps wires provider clients and services over the given backends
func NewDeps(ctx context.Context, cfg *config.Config, b Backends) (*Deps, error) {
	text, err := NewTextGenerator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}
	suno := client.NewSunoClient(&cfg.Suno)

	var signer *auth.CallbackSigner
	if cfg.Callback.Secret != "" {
		signer = auth.NewCallbackSigner(cfg.Callback.Secret, cfg.Callback.TokenTTL)
	}

	log.Info().
		Str("textProvider", text.Name()).
		Bool("textConfigured", text.IsConfigured()).
		Bool("musicConfigured", suno.IsConfigured()).
		Bool("signedCallbacks", signer.Enabled()).
		Str("publicUrl", cfg.Server.PublicURL).
		Msg("providers initialised")

	music := service.NewMusicService(suno, b.Jobs, signer, cfg.Server.PublicURL, model.ModelChoice(cfg.Suno.DefaultModel))
	notifications := service.NewNotificationService(b.Notifications)

	return &Deps{
		Verse:         service.NewVerseService(text),
		Music:         music,
		Callbacks:     service.NewCallbackService(b.Notifications, music, signer, b.Archive),
		Notifications: notifications,
		Hub:           ws.NewHub(notifications),
		Text:          text,
		MusicClient:   suno,
		Limiter:       middleware.NewRateLimiter(b.Counter),
		RateLimit:     cfg.RateLimit,
		AccessLog:     cfg.Server.Env != "test",
	}, nil
}
