package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/auth"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/store"
)

// ArchiveEnqueuer queues a finished song for copying into object storage.
type ArchiveEnqueuer interface {
	EnqueueArchive(ctx context.Context, payload *model.ArchiveTaskPayload) error
}

// CallbackService receives provider webhooks and turns them into the
// session's pending notification
type CallbackService struct {
	notifications store.NotificationStore
	music         *MusicService
	signer        *auth.CallbackSigner
	archive       ArchiveEnqueuer
	now           func() time.Time
}

// NewCallbackService wires the receiver. music and archive may be nil.
func NewCallbackService(notifications store.NotificationStore, music *MusicService, signer *auth.CallbackSigner, archive ArchiveEnqueuer) *CallbackService {
	return &CallbackService{
		notifications: notifications,
		music:         music,
		signer:        signer,
		archive:       archive,
		now:           time.Now,
	}
}

// Receive stores the callback for sessionID and acknowledges it. The body
// is never rejected for its content; only a missing session, a bad token
// or a storage failure fail the call.
func (s *CallbackService) Receive(ctx context.Context, sessionID, token string, body []byte) (*model.CallbackAck, error) {
	if sessionID == "" {
		log.Warn().Msg("callback received without a session id")
		return nil, apperr.New(apperr.KindMissingSession, "Session ID required")
	}

	if s.signer.Enabled() {
		if err := s.signer.Verify(token, sessionID); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("callback token rejected")
			return nil, apperr.Wrap(apperr.KindAuth, "Invalid callback token", err)
		}
	}

	now := s.now()
	n := model.NotificationFromCallback(sessionID, body, now)
	if err := s.notifications.Put(ctx, n); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to store callback notification")
		return nil, apperr.Wrap(apperr.KindService, "Failed to process callback", err)
	}

	shape, _ := model.DetectShape(n.Data)
	log.Info().
		Str("sessionId", sessionID).
		Str("jobId", n.TaskID).
		Str("type", string(n.Type)).
		Str("shape", shape.String()).
		Msg("music callback stored")

	if s.music != nil {
		if err := s.music.ApplyNotification(ctx, n); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to update job record")
		}
	}

	if s.archive != nil && n.Type == model.NotificationMusicComplete && n.Song != nil {
		payload := &model.ArchiveTaskPayload{
			SessionID: sessionID,
			TaskID:    n.TaskID,
			AudioURL:  n.Song.AudioURL,
			Title:     n.Song.Title,
		}
		if err := s.archive.EnqueueArchive(ctx, payload); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to enqueue song archive")
		}
	}

	return &model.CallbackAck{
		Status:    "received",
		SessionID: sessionID,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, nil
}
