package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versesong/api/internal/model"
)

func newNotification(sessionID, title string) *model.Notification {
	n := model.NewNotification(sessionID, model.NotificationMusicComplete, json.RawMessage(`{"title":"`+title+`"}`), time.Now())
	n.Song = &model.Song{AudioURL: "http://x/" + title + ".mp3", Title: title}
	return n
}

// notificationStoreContract runs the behaviour every NotificationStore
// implementation must share.
func notificationStoreContract(t *testing.T, s NotificationStore) {
	ctx := context.Background()

	t.Run("put then take then take again", func(t *testing.T) {
		n := newNotification("take-once", "a")
		require.NoError(t, s.Put(ctx, n))

		got, err := s.TakeIfPresent(ctx, "take-once")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, n.Type, got.Type)
		assert.Equal(t, n.Song, got.Song)
		assert.JSONEq(t, string(n.Data), string(got.Data))

		again, err := s.TakeIfPresent(ctx, "take-once")
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, newNotification("overwrite", "first")))
		require.NoError(t, s.Put(ctx, newNotification("overwrite", "second")))

		got, err := s.TakeIfPresent(ctx, "overwrite")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "second", got.Song.Title)

		again, err := s.TakeIfPresent(ctx, "overwrite")
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("sessions are independent", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, newNotification("indep-a", "a")))

		other, err := s.TakeIfPresent(ctx, "indep-b")
		require.NoError(t, err)
		assert.Nil(t, other)

		got, err := s.TakeIfPresent(ctx, "indep-a")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("wait wakes on put", func(t *testing.T) {
		done := make(chan *model.Notification, 1)
		go func() {
			n, _ := s.Wait(ctx, "waiter", 5*time.Second)
			done <- n
		}()

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, s.Put(ctx, newNotification("waiter", "w")))

		select {
		case n := <-done:
			require.NotNil(t, n)
			assert.Equal(t, "w", n.Song.Title)
		case <-time.After(3 * time.Second):
			t.Fatal("waiter was not woken")
		}
	})
}

func TestMemoryNotificationStore_Contract(t *testing.T) {
	notificationStoreContract(t, NewMemoryNotificationStore(time.Minute))
}

func TestMemoryNotificationStore_WaitTimeout(t *testing.T) {
	s := NewMemoryNotificationStore(0)

	start := time.Now()
	n, err := s.Wait(context.Background(), "nobody", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	s.mu.Lock()
	assert.Empty(t, s.waiters)
	s.mu.Unlock()
}

func TestMemoryNotificationStore_WaitCancelled(t *testing.T) {
	s := NewMemoryNotificationStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.Wait(ctx, "nobody", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, n)
}

func TestMemoryNotificationStore_Expiry(t *testing.T) {
	s := NewMemoryNotificationStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(context.Background(), newNotification("old", "o")))
	require.NoError(t, s.Put(context.Background(), newNotification("fresh", "f")))

	// age "old" past the ttl
	s.mu.Lock()
	s.items["old"].ReceivedAt = now.Add(-2 * time.Minute)
	s.mu.Unlock()

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	got, err := s.TakeIfPresent(context.Background(), "old")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.TakeIfPresent(context.Background(), "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryNotificationStore_ExpiredEntryNotReturned(t *testing.T) {
	s := NewMemoryNotificationStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(context.Background(), newNotification("stale", "s")))
	now = now.Add(2 * time.Minute)

	got, err := s.TakeIfPresent(context.Background(), "stale")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryNotificationStore_Concurrent(t *testing.T) {
	s := NewMemoryNotificationStore(time.Minute)
	ctx := context.Background()

	const sessions = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("session-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, newNotification(id, "x"))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.TakeIfPresent(ctx, id)
		}()
	}
	wg.Wait()

	// every notification was either taken or is still waiting, never both
	remaining := s.Len()
	taken := 0
	for i := 0; i < sessions; i++ {
		n, err := s.TakeIfPresent(ctx, fmt.Sprintf("session-%d", i))
		require.NoError(t, err)
		if n != nil {
			taken++
		}
	}
	assert.Equal(t, remaining, taken)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryJobStore(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, s.Save(ctx, &model.Job{ID: "task-1", SessionID: "S1", Prompt: "hello"}))
	job, err := s.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", job.ID)

	job.Prompt = "mutated"
	again, err := s.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Prompt)
}
