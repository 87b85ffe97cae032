package model

import "encoding/json"

// MusicStartRequest represents the request body for starting a song job
type MusicStartRequest struct {
	VerseText   string      `json:"verseText" validate:"max=5000"`
	SessionID   string      `json:"sessionId" validate:"max=128"`
	ModelChoice ModelChoice `json:"modelChoice" validate:"omitempty,oneof=V3_5 V4 V4_5"`
	VocalMode   VocalMode   `json:"vocalMode" validate:"omitempty,oneof=vocal instrumental"`
}

// MusicStartResponse is either a processing acknowledgement or, when the
// provider answered with a finished song, the song itself.
type MusicStartResponse struct {
	Status      JobStatus   `json:"status"`
	JobID       string      `json:"jobId,omitempty"`
	SessionID   string      `json:"sessionId,omitempty"`
	CallbackURL string      `json:"callbackUrl,omitempty"`
	ModelChoice ModelChoice `json:"modelChoice,omitempty"`
	Message     string      `json:"message,omitempty"`
	AudioURL    string      `json:"audioUrl,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Title       string      `json:"title,omitempty"`
	Duration    float64     `json:"duration,omitempty"`
	Filename    string      `json:"filename,omitempty"`
}

// MusicStatusRequest asks the provider directly about a job.
type MusicStatusRequest struct {
	TaskID string `json:"taskId" validate:"required,max=128"`
}

// MusicStatusResponse mirrors MusicStartResponse for a status lookup.
type MusicStatusResponse struct {
	Status   JobStatus `json:"status"`
	TaskID   string    `json:"taskId"`
	Message  string    `json:"message,omitempty"`
	AudioURL string    `json:"audioUrl,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty"`
	Title    string    `json:"title,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Filename string    `json:"filename,omitempty"`
}

// CallbackAck is returned to the provider for every stored callback.
type CallbackAck struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

// NotificationPostRequest stores an arbitrary notification for a session.
type NotificationPostRequest struct {
	SessionID string           `json:"sessionId"`
	Type      NotificationType `json:"type" validate:"max=64"`
	Data      json.RawMessage  `json:"data"`
}

// VerseGenerateRequest represents the request body for verse generation
type VerseGenerateRequest struct {
	Idea       string `json:"idea" validate:"required,max=500"`
	Regenerate bool   `json:"regenerate"`
}

// VerseGenerateResponse represents the response for verse generation
type VerseGenerateResponse struct {
	Verse string `json:"verse"`
}
