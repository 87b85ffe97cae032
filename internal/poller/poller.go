// Package poller runs the client-side loop that waits for a session's
// notification by repeatedly reading the notification endpoint.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/model"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultCeiling  = 300 * time.Second
)

// Source performs one non-blocking read of a session's notification.
type Source interface {
	Fetch(ctx context.Context, sessionID string) (*model.Notification, error)
}

// Handler receives each well-formed notification.
type Handler func(n *model.Notification)

// Poller runs at most one polling loop at a time.
type Poller struct {
	source   Source
	interval time.Duration
	ceiling  time.Duration

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a poller. Non-positive durations fall back to the defaults.
func New(source Source, interval, ceiling time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	closed := make(chan struct{})
	close(closed)
	return &Poller{
		source:   source,
		interval: interval,
		ceiling:  ceiling,
		done:     closed,
	}
}

// Start begins polling sessionID, delivering notifications to handler. It
// returns false, and changes nothing, when that session is already being
// polled. A loop for a different session is stopped first.
func (p *Poller) Start(sessionID string, handler Handler) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		if p.sessionID == sessionID {
			return false
		}
		log.Info().Str("sessionId", p.sessionID).Str("next", sessionID).Msg("replacing polling loop")
		p.stopLocked()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.ceiling)
	done := make(chan struct{})
	p.sessionID = sessionID
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, sessionID, handler, done)
	return true
}

// Stop ends the current loop. A poll already in flight still delivers its
// result, since the notification it read is gone from the store.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.sessionID = ""
}

// Running reports whether a loop is active and for which session.
func (p *Poller) Running() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID, p.cancel != nil
}

// Done is closed when the most recently started loop exits.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) loop(ctx context.Context, sessionID string, handler Handler, done chan struct{}) {
	defer close(done)
	defer p.release(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Warn().Str("sessionId", sessionID).Dur("ceiling", p.ceiling).Msg("polling ceiling reached")
			}
			return
		case <-ticker.C:
			p.poll(sessionID, handler)
		}
	}
}

// release clears the poller state if done still belongs to the current loop.
func (p *Poller) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == done && p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.sessionID = ""
	}
}

func (p *Poller) poll(sessionID string, handler Handler) {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	n, err := p.source.Fetch(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("poll failed, retrying at next tick")
		return
	}
	if !n.WellFormed() {
		return
	}
	handler(n)
}
