package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/model"
)

const (
	// TaskTypeArchive copies a finished song into object storage
	TaskTypeArchive = "song:archive"
	QueueArchive    = "archive"

	maxAudioBytes = 50 * 1024 * 1024
)

// ArchiveQueue enqueues archive tasks on asynq
type ArchiveQueue struct {
	asynqClient *asynq.Client
}

func NewArchiveQueue(asynqClient *asynq.Client) *ArchiveQueue {
	return &ArchiveQueue{asynqClient: asynqClient}
}

// EnqueueArchive schedules payload for archiving
func (q *ArchiveQueue) EnqueueArchive(ctx context.Context, payload *model.ArchiveTaskPayload) error {
	task, err := NewArchiveTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := q.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueArchive),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("sessionId", payload.SessionID).Str("taskId", info.ID).Msg("song archive queued")
	return nil
}

func NewArchiveTask(payload *model.ArchiveTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeArchive, data), nil
}

// ArchiveRecorder stores the archived location on the session's job
type ArchiveRecorder interface {
	RecordArchive(ctx context.Context, sessionID, archiveURL string) error
}

// ArchiveWorker downloads finished songs and uploads them to storage
type ArchiveWorker struct {
	storage    client.StorageClient
	recorder   ArchiveRecorder
	httpClient *http.Client
	maxBytes   int64
}

// NewArchiveWorker creates a new archive worker
func NewArchiveWorker(storage client.StorageClient, recorder ArchiveRecorder) *ArchiveWorker {
	return &ArchiveWorker{
		storage:    storage,
		recorder:   recorder,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		maxBytes:   maxAudioBytes,
	}
}

// ProcessTask handles archive task processing
func (w *ArchiveWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ArchiveTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal archive payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.SessionID == "" || payload.AudioURL == "" {
		return fmt.Errorf("archive payload incomplete: %w", asynq.SkipRetry)
	}

	logger := log.With().Str("sessionId", payload.SessionID).Str("jobId", payload.TaskID).Logger()
	logger.Info().Str("audioUrl", payload.AudioURL).Msg("archiving song")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.AudioURL, nil)
	if err != nil {
		return fmt.Errorf("invalid audio url: %v: %w", err, asynq.SkipRetry)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("audio download returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if resp.ContentLength > w.maxBytes {
		return fmt.Errorf("audio is %d bytes, limit is %d: %w", resp.ContentLength, w.maxBytes, asynq.SkipRetry)
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	if int64(len(audio)) > w.maxBytes {
		return fmt.Errorf("audio exceeds %d bytes: %w", w.maxBytes, asynq.SkipRetry)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	key := fmt.Sprintf("songs/%s/%s.mp3", payload.SessionID, uuid.New().String())
	url, err := w.storage.Upload(ctx, key, bytes.NewReader(audio), contentType)
	if err != nil {
		return fmt.Errorf("failed to upload song: %w", err)
	}

	if w.recorder != nil {
		if err := w.recorder.RecordArchive(ctx, payload.SessionID, url); err != nil {
			logger.Warn().Err(err).Msg("failed to record archive url")
		}
	}

	logger.Info().Str("archiveUrl", url).Msg("song archived")
	return nil
}
