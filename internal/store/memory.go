package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/model"
)

// MemoryNotificationStore is a process-local NotificationStore. Entries
// older than ttl are treated as absent and removed by Sweep.
type MemoryNotificationStore struct {
	mu      sync.Mutex
	items   map[string]*model.Notification
	waiters map[string][]chan struct{}
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryNotificationStore creates an in-memory store. A ttl of zero
// disables expiry.
func NewMemoryNotificationStore(ttl time.Duration) *MemoryNotificationStore {
	return &MemoryNotificationStore{
		items:   make(map[string]*model.Notification),
		waiters: make(map[string][]chan struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores the notification and wakes every waiter for the session.
func (s *MemoryNotificationStore) Put(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = s.now()
	}
	s.items[n.SessionID] = &stored

	for _, ch := range s.waiters[n.SessionID] {
		close(ch)
	}
	delete(s.waiters, n.SessionID)
	return nil
}

// TakeIfPresent removes and returns the session's notification.
func (s *MemoryNotificationStore) TakeIfPresent(_ context.Context, sessionID string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked(sessionID), nil
}

func (s *MemoryNotificationStore) takeLocked(sessionID string) *model.Notification {
	n, ok := s.items[sessionID]
	if !ok {
		return nil
	}
	delete(s.items, sessionID)
	if s.expired(n) {
		return nil
	}
	return n
}

func (s *MemoryNotificationStore) expired(n *model.Notification) bool {
	return s.ttl > 0 && s.now().Sub(n.ReceivedAt) > s.ttl
}

// Wait blocks until a notification for the session is stored.
func (s *MemoryNotificationStore) Wait(ctx context.Context, sessionID string, timeout time.Duration) (*model.Notification, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if n := s.takeLocked(sessionID); n != nil {
			s.mu.Unlock()
			return n, nil
		}
		ch := make(chan struct{})
		s.waiters[sessionID] = append(s.waiters[sessionID], ch)
		s.mu.Unlock()

		select {
		case <-ch:
			// another waiter may have taken it first; loop and check
		case <-timer.C:
			s.removeWaiter(sessionID, ch)
			return nil, nil
		case <-ctx.Done():
			s.removeWaiter(sessionID, ch)
			return nil, ctx.Err()
		}
	}
}

func (s *MemoryNotificationStore) removeWaiter(sessionID string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiters := s.waiters[sessionID]
	for i, w := range waiters {
		if w == ch {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(s.waiters, sessionID)
	} else {
		s.waiters[sessionID] = waiters
	}
}

// Len returns the number of stored notifications, expired ones included.
func (s *MemoryNotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops expired notifications and returns how many were removed.
func (s *MemoryNotificationStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.items {
		if s.expired(n) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryNotificationStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				log.Info().Int("removed", removed).Msg("swept expired notifications")
			}
		}
	}
}

// MemoryJobStore is a process-local JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryJobStore) Save(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.SessionID] = *job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, sessionID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[sessionID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}
