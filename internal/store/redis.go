package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/versesong/api/internal/model"
)

const (
	notificationPrefix = "notification:"
	jobPrefix          = "job:session:"
	jobTTL             = 24 * time.Hour
)

// RedisNotificationStore keeps each session's notification in a one-element
// Redis list so that a take is a single LPOP and a wait is a BLPOP.
type RedisNotificationStore struct {
	redis *redis.Client
	// blocking serves BLPOP so long waits never drain the pool used by Put
	blocking *redis.Client
	ttl      time.Duration
}

// NewRedisNotificationStore creates a Redis-backed store. Keys expire after
// ttl; zero keeps them until taken.
func NewRedisNotificationStore(redisClient *redis.Client, ttl time.Duration) *RedisNotificationStore {
	return &RedisNotificationStore{redis: redisClient, blocking: redisClient, ttl: ttl}
}

// WithBlockingClient routes Wait through its own client. Its pool size caps
// the number of concurrent long polls and streams.
func (s *RedisNotificationStore) WithBlockingClient(blocking *redis.Client) *RedisNotificationStore {
	if blocking != nil {
		s.blocking = blocking
	}
	return s
}

func (s *RedisNotificationStore) key(sessionID string) string {
	return notificationPrefix + sessionID
}

// Put replaces the session's list with the single new notification.
func (s *RedisNotificationStore) Put(ctx context.Context, n *model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := s.key(n.SessionID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (s *RedisNotificationStore) TakeIfPresent(ctx context.Context, sessionID string) (*model.Notification, error) {
	data, err := s.redis.LPop(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to take notification: %w", err)
	}
	return decodeNotification(data)
}

func (s *RedisNotificationStore) Wait(ctx context.Context, sessionID string, timeout time.Duration) (*model.Notification, error) {
	if timeout < time.Second {
		timeout = time.Second
	}
	result, err := s.blocking.BLPop(ctx, timeout, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to wait for notification: %w", err)
	}
	// BLPOP answers [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(result))
	}
	return decodeNotification([]byte(result[1]))
}

func decodeNotification(data []byte) (*model.Notification, error) {
	var n model.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}

// RedisJobStore stores job records as JSON under job:session:<id>.
type RedisJobStore struct {
	redis *redis.Client
}

func NewRedisJobStore(redisClient *redis.Client) *RedisJobStore {
	return &RedisJobStore{redis: redisClient}
}

func (s *RedisJobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobPrefix+job.SessionID, data, jobTTL).Err()
}

func (s *RedisJobStore) Get(ctx context.Context, sessionID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
