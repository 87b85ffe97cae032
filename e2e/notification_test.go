package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versesong/api/internal/model"
)

func TestNotifications_ReadAndClear(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, "POST", "/api/notifications", `{"sessionId":"S1","type":"music_complete","data":{"audio_url":"u"}}`, nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "stored", parseJSON(t, resp)["status"])

	resp, err = doRequest(ta.app, "GET", "/api/notifications?sessionId=S1", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	body := parseJSON(t, resp)
	assert.Equal(t, "music_complete", body["type"])
	assert.Equal(t, map[string]interface{}{"audio_url": "u"}, body["data"])
	assert.NotZero(t, body["timestamp"])

	resp, err = doRequest(ta.app, "GET", "/api/notifications?sessionId=S1", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "no_notification", parseJSON(t, resp)["status"])
}

func TestNotifications_LastWriteWins(t *testing.T) {
	ta := setupApp(t, appOptions{})

	for _, typ := range []string{"music_progress", "music_complete"} {
		resp, err := doRequest(ta.app, "POST", "/api/notifications", `{"sessionId":"S1","type":"`+typ+`","data":{}}`, nil)
		require.NoError(t, err)
		assertStatus(t, resp, http.StatusOK)
	}

	resp, err := doRequest(ta.app, "GET", "/api/notifications?sessionId=S1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "music_complete", parseJSON(t, resp)["type"])
}

func TestNotifications_SessionsAreIndependent(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, "POST", "/api/notifications", `{"sessionId":"A","type":"music_complete","data":{}}`, nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)

	resp, err = doRequest(ta.app, "GET", "/api/notifications?sessionId=B", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "no_notification", parseJSON(t, resp)["status"])
	assert.Equal(t, 1, ta.notifications.Len())
}

func TestNotifications_MissingSession(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, "POST", "/api/notifications", `{"type":"music_complete","data":{}}`, nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "missing_session", parseJSON(t, resp)["type"])

	resp, err = doRequest(ta.app, "GET", "/api/notifications", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "missing_session", parseJSON(t, resp)["type"])
}

func TestNotifications_BadWait(t *testing.T) {
	ta := setupApp(t, appOptions{})
	resp, err := doRequest(ta.app, "GET", "/api/notifications?sessionId=S&wait=soon", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestNotifications_BlockingWait(t *testing.T) {
	ta := setupApp(t, appOptions{})

	go func() {
		time.Sleep(100 * time.Millisecond)
		n := model.NewNotification("S1", model.NotificationMusicComplete, []byte(`{"audio_url":"late"}`), time.Now())
		_ = ta.notifications.Put(context.Background(), n)
	}()

	start := time.Now()
	resp, err := doRequest(ta.app, "GET", "/api/notifications?sessionId=S1&wait=5", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "music_complete", parseJSON(t, resp)["type"])
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestNotifications_WaitTimesOut(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, "GET", "/api/notifications?sessionId=S1&wait=0.2", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "no_notification", parseJSON(t, resp)["status"])
}
