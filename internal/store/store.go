package store

import (
	"context"
	"errors"
	"time"

	"github.com/versesong/api/internal/model"
)

// ErrJobNotFound is returned when no job record exists for a session.
var ErrJobNotFound = errors.New("job not found")

// NotificationStore holds at most one pending notification per session.
// Implementations must be safe for concurrent use; Put and TakeIfPresent
// are each atomic.
type NotificationStore interface {
	// Put stores n for n.SessionID, replacing any unread notification.
	Put(ctx context.Context, n *model.Notification) error

	// TakeIfPresent removes and returns the pending notification, or nil
	// when there is none.
	TakeIfPresent(ctx context.Context, sessionID string) (*model.Notification, error)

	// Wait behaves like TakeIfPresent but blocks until a notification
	// arrives, the timeout elapses (nil, nil) or ctx is done.
	Wait(ctx context.Context, sessionID string, timeout time.Duration) (*model.Notification, error)
}

// JobStore keeps the orchestrator's job record for each session.
type JobStore interface {
	Save(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, sessionID string) (*model.Job, error)
}
