package middleware

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/versesong/api/pkg/response"
)

// Counter counts hits per key in fixed windows.
type Counter interface {
	// Incr adds one hit and returns the count in the current window and the
	// time until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter shares windows across processes
type RedisCounter struct {
	redis *redis.Client
}

func NewRedisCounter(redisClient *redis.Client) *RedisCounter {
	return &RedisCounter{redis: redisClient}
}

func (rc *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := rc.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	// Set expiration on first request
	if count == 1 {
		rc.redis.Expire(ctx, key, window)
	}

	ttl, err := rc.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return count, ttl, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter keeps windows in process memory. Expired windows are
// evicted at most once per sweep interval.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*memoryWindow
	now       func() time.Time
	nextSweep time.Time
	sweepEach time.Duration
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows:   make(map[string]*memoryWindow),
		now:       time.Now,
		sweepEach: time.Minute,
	}
}

func (mc *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if now.After(mc.nextSweep) {
		mc.evictLocked(now)
		mc.nextSweep = now.Add(mc.sweepEach)
	}

	w, ok := mc.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		mc.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

func (mc *MemoryCounter) evictLocked(now time.Time) {
	for key, w := range mc.windows {
		if !now.Before(w.resetAt) {
			delete(mc.windows, key)
		}
	}
}

// Len returns the number of tracked windows.
func (mc *MemoryCounter) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.windows)
}

type RateLimiter struct {
	counter Counter
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the peer address.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return c.IP()
}

// Limit creates a per-client rate limiting middleware
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, ClientIP(c))

		count, resetIn, err := rl.counter.Incr(c.Context(), key, window)
		if err != nil {
			// If the counter fails, allow the request but log the error
			log.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
			return c.Next()
		}

		if count > int64(maxRequests) {
			seconds := int(math.Ceil(resetIn.Seconds()))
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", seconds))
			return response.RateLimited(c, fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before trying again.", seconds))
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// VerseLimit limits verse generation per minute
func (rl *RateLimiter) VerseLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("verse", maxPerMin, time.Minute)
}

// MusicLimit limits job starts per hour
func (rl *RateLimiter) MusicLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("music", maxPerHour, time.Hour)
}
