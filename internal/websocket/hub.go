package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/model"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultTakeWait     = 25 * time.Second
	retryDelay          = time.Second
)

// Taker hands out a session's pending notification, waiting up to wait.
type Taker interface {
	Take(ctx context.Context, sessionID string, wait time.Duration) (*model.Notification, error)
}

// Client is the live stream for one session
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

// Hub keeps at most one live stream per session. A newer connection for a
// session replaces the older one.
type Hub struct {
	taker        Taker
	pingInterval time.Duration
	takeWait     time.Duration

	mu      sync.Mutex
	streams map[string]*Client
}

// NewHub creates a new Hub
func NewHub(taker Taker) *Hub {
	return &Hub{
		taker:        taker,
		pingInterval: defaultPingInterval,
		takeWait:     defaultTakeWait,
		streams:      make(map[string]*Client),
	}
}

// Register makes client the session's stream and ends any previous one.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	previous := h.streams[client.SessionID]
	h.streams[client.SessionID] = client
	h.mu.Unlock()

	if previous != nil {
		log.Info().Str("sessionId", client.SessionID).Msg("replacing notification stream")
		previous.cancel()
	}
	log.Debug().Str("sessionId", client.SessionID).Msg("stream registered")
}

// Unregister removes client unless it has already been replaced.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if h.streams[client.SessionID] == client {
		delete(h.streams, client.SessionID)
	}
	h.mu.Unlock()
	client.cancel()
	log.Debug().Str("sessionId", client.SessionID).Msg("stream unregistered")
}

// Active returns the number of live streams.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// HandleConnection streams the session's notifications over c until the
// peer goes away or a newer connection takes over.
func (h *Hub) HandleConnection(c *websocket.Conn, sessionID string) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		SessionID: sessionID,
		Conn:      c,
		Send:      make(chan []byte, 16),
		ctx:       ctx,
		cancel:    cancel,
	}

	h.Register(client)
	defer h.Unregister(client)

	go h.writeLoop(client)
	go h.deliverLoop(client)

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("sessionId", sessionID).Msg("websocket read error")
			}
			return
		}

		var msg model.StreamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.StreamMessagePing {
			client.push(model.StreamMessage{Type: model.StreamMessagePong})
		}
	}
}

func (h *Hub) writeLoop(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-client.Send:
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.cancel()
				return
			}

		case <-ticker.C:
			// Send ping for keep-alive
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.cancel()
				return
			}

		case <-client.ctx.Done():
			_ = client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = client.Conn.Close()
			return
		}
	}
}

func (h *Hub) deliverLoop(client *Client) {
	for {
		n, err := h.taker.Take(client.ctx, client.SessionID, h.takeWait)
		if client.ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("sessionId", client.SessionID).Msg("stream read failed")
			kind := apperr.KindOf(err)
			client.push(model.StreamMessage{
				Type:      model.StreamMessageError,
				SessionID: client.SessionID,
				Error:     &model.StreamError{Code: string(kind), Message: kind.UserMessage()},
			})
			select {
			case <-time.After(retryDelay):
			case <-client.ctx.Done():
				return
			}
			continue
		}
		if n == nil {
			continue
		}

		log.Info().Str("sessionId", client.SessionID).Str("type", string(n.Type)).Msg("pushing notification")
		client.push(model.StreamMessage{
			Type:         model.StreamMessageNotification,
			SessionID:    client.SessionID,
			Notification: n,
		})
	}
}

func (c *Client) push(msg model.StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal stream message")
		return
	}
	select {
	case c.Send <- data:
	case <-c.ctx.Done():
	}
}
