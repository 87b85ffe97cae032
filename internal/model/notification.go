package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// NotificationType identifies what happened to a session's job.
type NotificationType string

const (
	NotificationMusicComplete NotificationType = "music_complete"
	// completed, but the payload carried no usable song
	NotificationMusicEmpty    NotificationType = "music_empty"
	NotificationMusicProgress NotificationType = "music_progress"
	NotificationMusicFailed   NotificationType = "music_failed"
)

// Notification is the single pending event held for a session until a
// reader takes it.
type Notification struct {
	SessionID  string           `json:"sessionId"`
	Type       NotificationType `json:"type"`
	Data       json.RawMessage  `json:"data"`
	Song       *Song            `json:"song,omitempty"`
	TaskID     string           `json:"taskId,omitempty"`
	Message    string           `json:"message,omitempty"`
	ReceivedAt time.Time        `json:"receivedAt"`
	Timestamp  int64            `json:"timestamp"`
}

// WellFormed reports whether both type and data are present.
func (n *Notification) WellFormed() bool {
	if n == nil || n.Type == "" {
		return false
	}
	data := bytes.TrimSpace(n.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// Terminal reports whether no further notification is expected for the job.
func (n *Notification) Terminal() bool {
	switch n.Type {
	case NotificationMusicComplete, NotificationMusicEmpty, NotificationMusicFailed:
		return true
	}
	return false
}

// NewNotification stamps a notification with its arrival time.
func NewNotification(sessionID string, typ NotificationType, data json.RawMessage, now time.Time) *Notification {
	return &Notification{
		SessionID:  sessionID,
		Type:       typ,
		Data:       data,
		ReceivedAt: now,
		Timestamp:  now.UnixMilli(),
	}
}

// Provider callback types, as sent in data.callbackType.
const (
	callbackTypeText     = "text"
	callbackTypeFirst    = "first"
	callbackTypeComplete = "complete"
	callbackTypeError    = "error"
)

type callbackEnvelope struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		CallbackType string `json:"callbackType"`
		TaskID       string `json:"task_id"`
		TaskIDCamel  string `json:"taskId"`
	} `json:"data"`
}

// NotificationFromCallback turns a provider callback body into the
// notification stored for the session. It never fails: a body that cannot
// be understood becomes a music_empty notification carrying the raw input.
func NotificationFromCallback(sessionID string, body []byte, now time.Time) *Notification {
	data := json.RawMessage(bytes.TrimSpace(body))
	if len(data) == 0 || !json.Valid(data) || bytes.Equal(data, []byte("null")) {
		quoted, _ := json.Marshal(string(body))
		data = quoted
	}

	n := NewNotification(sessionID, NotificationMusicEmpty, data, now)
	song, _ := ExtractSong(data)
	n.Song = song

	var env callbackEnvelope
	if data[0] == '{' && json.Unmarshal(data, &env) == nil {
		n.TaskID = env.Data.TaskID
		if n.TaskID == "" {
			n.TaskID = env.Data.TaskIDCamel
		}
		n.Message = env.Msg
		if (env.Code != nil && *env.Code != 200) || env.Data.CallbackType == callbackTypeError {
			n.Type = NotificationMusicFailed
			return n
		}
		switch env.Data.CallbackType {
		case callbackTypeText, callbackTypeFirst:
			n.Type = NotificationMusicProgress
			return n
		}
	}

	if song != nil {
		n.Type = NotificationMusicComplete
	}
	return n
}
