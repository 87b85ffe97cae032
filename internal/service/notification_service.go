package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/store"
)

// MaxWait caps a single long-poll read.
const MaxWait = 30 * time.Second

// NotificationService is the read/write front of the notification store
type NotificationService struct {
	store store.NotificationStore
	now   func() time.Time
}

func NewNotificationService(s store.NotificationStore) *NotificationService {
	return &NotificationService{store: s, now: time.Now}
}

// Post stores an arbitrary notification, replacing any unread one.
func (s *NotificationService) Post(ctx context.Context, req *model.NotificationPostRequest) error {
	if req.SessionID == "" {
		return apperr.New(apperr.KindMissingSession, "Session ID required")
	}

	n := model.NewNotification(req.SessionID, req.Type, req.Data, s.now())
	if err := s.store.Put(ctx, n); err != nil {
		return apperr.Wrap(apperr.KindService, "Failed to store notification", err)
	}

	log.Info().Str("sessionId", req.SessionID).Str("type", string(req.Type)).Msg("stored notification")
	return nil
}

// Take removes and returns the pending notification, or nil. A positive
// wait blocks for up to wait (capped at MaxWait) for one to arrive.
func (s *NotificationService) Take(ctx context.Context, sessionID string, wait time.Duration) (*model.Notification, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindMissingSession, "Session ID required")
	}

	var (
		n   *model.Notification
		err error
	)
	if wait > 0 {
		if wait > MaxWait {
			wait = MaxWait
		}
		n, err = s.store.Wait(ctx, sessionID, wait)
	} else {
		n, err = s.store.TakeIfPresent(ctx, sessionID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindService, "Failed to read notification", err)
	}
	return n, nil
}
