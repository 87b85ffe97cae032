package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/model"
)

func TestAPIClient_Fetch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/notifications", r.URL.Path)
		assert.Equal(t, "S1", r.URL.Query().Get("sessionId"))
		if calls == 1 {
			_, _ = w.Write([]byte(`{"status":"no_notification"}`))
			return
		}
		assert.Equal(t, "5", r.URL.Query().Get("wait"))
		_, _ = w.Write([]byte(`{"sessionId":"S1","type":"music_complete","data":{"x":1},"song":{"audioUrl":"u"}}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second*10)

	n, err := c.Fetch(context.Background(), "S1")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = c.Wait(context.Background(), "S1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationMusicComplete, n.Type)
	assert.Equal(t, "u", n.Song.AudioURL)
}

func TestAPIClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid API key","type":"auth_error","retryable":true}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	_, err := c.StartMusic(context.Background(), &model.MusicStartRequest{VerseText: "v", SessionID: "S1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestAPIClient_WaitSubSecond(t *testing.T) {
	waits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		waits <- r.URL.Query().Get("wait")
		_, _ = w.Write([]byte(`{"status":"no_notification"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	n, err := c.Wait(context.Background(), "S1", 250*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, "0.25", <-waits)
}
