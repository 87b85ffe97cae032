package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter_Window(t *testing.T) {
	mc := NewMemoryCounter()
	now := time.Now()
	mc.now = func() time.Time { return now }

	count, resetIn, err := mc.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, resetIn)

	now = now.Add(30 * time.Second)
	count, resetIn, _ = mc.Incr(context.Background(), "k", time.Minute)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 30*time.Second, resetIn)

	now = now.Add(31 * time.Second)
	count, _, _ = mc.Incr(context.Background(), "k", time.Minute)
	assert.Equal(t, int64(1), count)
}

func TestMemoryCounter_EvictsExpiredWindows(t *testing.T) {
	mc := NewMemoryCounter()
	now := time.Now()
	mc.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		_, _, _ = mc.Incr(context.Background(), key, time.Second)
	}
	assert.Equal(t, 3, mc.Len())

	now = now.Add(2 * time.Minute)
	_, _, _ = mc.Incr(context.Background(), "d", time.Second)
	assert.Equal(t, 1, mc.Len())
}

func newLimitedApp(maxRequests int) *fiber.App {
	app := fiber.New()
	rl := NewRateLimiter(NewMemoryCounter())
	app.Post("/limited", rl.Limit("test", maxRequests, time.Minute), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRateLimiter_Limit(t *testing.T) {
	app := newLimitedApp(5)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/limited", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/limited", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// another client has its own window
	req = httptest.NewRequest("POST", "/limited", nil)
	req.Header.Set("X-Real-IP", "198.51.100.2")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRedisCounter(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	key := "ratelimit:test:" + t.Name()
	require.NoError(t, client.Del(context.Background(), key).Err())

	rc := NewRedisCounter(client)
	count, ttl, err := rc.Incr(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	count, _, err = rc.Incr(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
