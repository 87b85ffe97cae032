package model

import "time"

// Job is the orchestrator's record of one provider-side generation job.
// There is at most one per session; starting again replaces it.
type Job struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionId"`
	Status         JobStatus   `json:"status"`
	Prompt         string      `json:"prompt"`
	OriginalLength int         `json:"originalLength"`
	Truncated      bool        `json:"truncated"`
	ModelChoice    ModelChoice `json:"modelChoice"`
	VocalMode      VocalMode   `json:"vocalMode"`
	CallbackURL    string      `json:"callbackUrl"`
	Song           *Song       `json:"song,omitempty"`
	ArchiveURL     string      `json:"archiveUrl,omitempty"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
}

// ArchiveTaskPayload is the queued request to copy a finished song into
// object storage.
type ArchiveTaskPayload struct {
	SessionID string `json:"sessionId"`
	TaskID    string `json:"taskId,omitempty"`
	AudioURL  string `json:"audioUrl"`
	Title     string `json:"title,omitempty"`
}
