package model

// Stream message types
const (
	StreamMessageNotification = "notification"
	StreamMessageError        = "error"
	StreamMessagePing         = "ping"
	StreamMessagePong         = "pong"
)

// StreamMessage is one frame on a session's notification stream
type StreamMessage struct {
	Type         string        `json:"type"`
	SessionID    string        `json:"sessionId,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Error        *StreamError  `json:"error,omitempty"`
}

type StreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
