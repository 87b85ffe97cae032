package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/auth"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/store"
)

const (
	// MaxPromptLength is the longest prompt the music provider accepts.
	MaxPromptLength  = 400
	truncationMarker = "..."

	CallbackPath = "/api/music/callback"
)

// TruncatePrompt cuts text to MaxPromptLength characters, ending in "..."
// when anything was removed.
func TruncatePrompt(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MaxPromptLength {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:MaxPromptLength-len(truncationMarker)]) + truncationMarker, true
}

// MusicService starts provider jobs and keeps one job record per session
type MusicService struct {
	music        client.MusicGenerator
	jobs         store.JobStore
	signer       *auth.CallbackSigner
	baseURL      string
	defaultModel model.ModelChoice
	now          func() time.Time
}

func NewMusicService(music client.MusicGenerator, jobs store.JobStore, signer *auth.CallbackSigner, baseURL string, defaultModel model.ModelChoice) *MusicService {
	if !defaultModel.IsValid() {
		defaultModel = model.ModelV4
	}
	return &MusicService{
		music:        music,
		jobs:         jobs,
		signer:       signer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		now:          time.Now,
	}
}

// CallbackURL is the webhook the provider calls for sessionID. The same
// session always yields the same URL unless callback signing is enabled.
func (s *MusicService) CallbackURL(sessionID string) (string, error) {
	query := url.Values{"sessionId": {sessionID}}
	if s.signer.Enabled() {
		token, err := s.signer.Sign(sessionID)
		if err != nil {
			return "", apperr.Wrap(apperr.KindConfig, "Failed to sign callback URL", err)
		}
		query.Set("token", token)
	}
	return s.baseURL + CallbackPath + "?" + query.Encode(), nil
}

// Start submits the verse to the music provider on behalf of a session.
// Nothing is recorded when the provider rejects the job.
func (s *MusicService) Start(ctx context.Context, req *model.MusicStartRequest) (*model.MusicStartResponse, error) {
	if strings.TrimSpace(req.VerseText) == "" {
		return nil, apperr.Validation("Verse is required")
	}
	if req.SessionID == "" {
		return nil, apperr.Validation("Session ID is required")
	}

	modelChoice := req.ModelChoice
	if modelChoice == "" {
		modelChoice = s.defaultModel
	}
	if !modelChoice.IsValid() {
		return nil, apperr.Validation("Model must be one of V3_5, V4, V4_5")
	}
	vocalMode := req.VocalMode
	if vocalMode == "" {
		vocalMode = model.VocalModeVocal
	}

	if !s.music.IsConfigured() {
		return nil, apperr.New(apperr.KindConfig, "Music generation API key not configured. Please set SUNO_API_KEY.")
	}

	prompt, truncated := TruncatePrompt(req.VerseText)
	callbackURL, err := s.CallbackURL(req.SessionID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", req.SessionID).
		Str("model", string(modelChoice)).
		Int("promptLength", utf8.RuneCountInString(prompt)).
		Bool("truncated", truncated).
		Msg("starting music generation")

	result, err := s.music.GenerateMusic(ctx, &client.GenerateMusicRequest{
		Prompt:       prompt,
		Model:        string(modelChoice),
		CustomMode:   false,
		Instrumental: vocalMode.Instrumental(),
		CallBackURL:  callbackURL,
	})
	if err != nil {
		log.Warn().Err(err).Str("sessionId", req.SessionID).Msg("music generation rejected")
		return nil, apperr.From(err, apperr.KindService, "Music generation failed")
	}

	now := s.now()
	job := &model.Job{
		ID:             result.TaskID,
		SessionID:      req.SessionID,
		Status:         model.JobStatusProcessing,
		Prompt:         prompt,
		OriginalLength: utf8.RuneCountInString(req.VerseText),
		Truncated:      truncated,
		ModelChoice:    modelChoice,
		VocalMode:      vocalMode,
		CallbackURL:    callbackURL,
		CreatedAt:      now,
	}

	if result.Song != nil {
		job.Status = model.JobStatusCompleted
		job.Song = result.Song
		job.CompletedAt = &now
		s.saveJob(ctx, job)

		title := result.Song.Title
		if title == "" {
			title = "Generated Music"
		}
		return &model.MusicStartResponse{
			Status:    model.JobStatusCompleted,
			SessionID: req.SessionID,
			AudioURL:  result.Song.AudioURL,
			ImageURL:  result.Song.ImageURL,
			Title:     title,
			Duration:  result.Song.Duration,
			Filename:  result.Song.Filename(),
		}, nil
	}

	s.saveJob(ctx, job)

	return &model.MusicStartResponse{
		Status:      model.JobStatusProcessing,
		JobID:       result.TaskID,
		SessionID:   req.SessionID,
		CallbackURL: callbackURL,
		ModelChoice: modelChoice,
		Message:     "Music generation started. You'll be notified when it's ready.",
	}, nil
}

// saveJob records the job; the record is informational so failures are
// logged rather than returned.
func (s *MusicService) saveJob(ctx context.Context, job *model.Job) {
	if err := s.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Str("sessionId", job.SessionID).Str("jobId", job.ID).Msg("failed to save job record")
	}
}

// Job returns the session's job record
func (s *MusicService) Job(ctx context.Context, sessionID string) (*model.Job, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindMissingSession, "Session ID required")
	}
	job, err := s.jobs.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "No job for this session")
		}
		return nil, apperr.Wrap(apperr.KindService, "Failed to load job", err)
	}
	return job, nil
}

// ApplyNotification moves the session's job to the outcome a callback
// reported. Sessions without a job record are ignored.
func (s *MusicService) ApplyNotification(ctx context.Context, n *model.Notification) error {
	job, err := s.jobs.Get(ctx, n.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil
		}
		return err
	}

	now := s.now()
	switch n.Type {
	case model.NotificationMusicComplete:
		job.Status = model.JobStatusCompleted
		job.Song = n.Song
	case model.NotificationMusicEmpty:
		job.Status = model.JobStatusCompleted
	case model.NotificationMusicFailed:
		job.Status = model.JobStatusFailed
		job.Error = n.Message
	default:
		return nil
	}
	job.CompletedAt = &now
	return s.jobs.Save(ctx, job)
}

// RecordArchive stores the archived copy's URL on the session's job.
func (s *MusicService) RecordArchive(ctx context.Context, sessionID, archiveURL string) error {
	job, err := s.jobs.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	job.ArchiveURL = archiveURL
	return s.jobs.Save(ctx, job)
}

// CheckStatus asks the provider directly whether a task has finished
func (s *MusicService) CheckStatus(ctx context.Context, taskID string) (*model.MusicStatusResponse, error) {
	if taskID == "" {
		return nil, apperr.Validation("Task ID is required")
	}
	if !s.music.IsConfigured() {
		return nil, apperr.New(apperr.KindConfig, "Music generation API key not configured. Please set SUNO_API_KEY.")
	}

	status, err := s.music.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, apperr.From(err, apperr.KindService, "Status check failed")
	}

	if !status.Completed {
		message := "Music is still being generated..."
		if status.Progress != "" {
			message += " (" + status.Progress + ")"
		}
		return &model.MusicStatusResponse{
			Status:  model.JobStatusProcessing,
			TaskID:  taskID,
			Message: message,
		}, nil
	}

	return &model.MusicStatusResponse{
		Status:   model.JobStatusCompleted,
		TaskID:   taskID,
		AudioURL: status.Song.AudioURL,
		ImageURL: status.Song.ImageURL,
		Title:    status.Song.Title,
		Duration: status.Song.Duration,
		Filename: status.Song.Filename(),
	}, nil
}
