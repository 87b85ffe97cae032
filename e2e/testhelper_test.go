package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/config"
	"github.com/versesong/api/internal/middleware"
	"github.com/versesong/api/internal/server"
	"github.com/versesong/api/internal/store"
)

const testPublicURL = "https://songs.test"

// fakeProvider stands in for both the music API and the OpenAI-compatible
// text API.
type fakeProvider struct {
	mu sync.Mutex

	musicStatus int
	musicBody   string
	musicReqs   []client.GenerateMusicRequest

	statusBody string

	textStatus int
	textBody   string
}

func (p *fakeProvider) setMusic(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.musicStatus, p.musicBody = status, body
}

func (p *fakeProvider) setText(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textStatus, p.textBody = status, body
}

func (p *fakeProvider) lastMusicRequest(t *testing.T) client.GenerateMusicRequest {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.musicReqs, "provider was never called")
	return p.musicReqs[len(p.musicReqs)-1]
}

func (p *fakeProvider) musicCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.musicReqs)
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/api/v1/generate":
		var req client.GenerateMusicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		p.musicReqs = append(p.musicReqs, req)
		w.WriteHeader(p.musicStatus)
		_, _ = w.Write([]byte(p.musicBody))
	case strings.HasPrefix(r.URL.Path, "/api/v1/status/"):
		_, _ = w.Write([]byte(p.statusBody))
	case r.URL.Path == "/chat/completions":
		w.WriteHeader(p.textStatus)
		_, _ = w.Write([]byte(p.textBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type appOptions struct {
	callbackSecret string
	versePerMin    int
	noKeys         bool
}

// testApp holds all components needed for testing
type testApp struct {
	app           *fiber.App
	provider      *fakeProvider
	notifications *store.MemoryNotificationStore
	jobs          *store.MemoryJobStore
}

// setupApp builds the same app as cmd/server over the in-memory backend,
// with both providers pointed at a fake.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	provider := &fakeProvider{
		musicStatus: http.StatusOK,
		musicBody:   `{"code":200,"msg":"success","data":{"taskId":"task-123"}}`,
		statusBody:  `{"code":200,"msg":"success","data":{"status":"processing","progress":"40%"}}`,
		textStatus:  http.StatusOK,
		textBody:    `{"choices":[{"message":{"content":"Moonlight spills on quiet streets"}}]}`,
	}
	providerSrv := httptest.NewServer(provider)
	t.Cleanup(providerSrv.Close)

	apiKey := "test-key"
	if opts.noKeys {
		apiKey = ""
	}
	versePerMin := opts.versePerMin
	if versePerMin == 0 {
		versePerMin = 10000
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test", PublicURL: testPublicURL},
		Store:     config.StoreConfig{Backend: config.BackendMemory, NotificationTTL: time.Minute},
		RateLimit: config.RateLimitConfig{VersePerMin: versePerMin, MusicPerHour: 10000},
		Text:      config.TextConfig{Provider: config.TextProviderGroq},
		Groq:      config.GroqConfig{APIKey: apiKey, BaseURL: providerSrv.URL, Model: "test-model"},
		Suno:      config.SunoConfig{APIKey: apiKey, BaseURL: providerSrv.URL, DefaultModel: "V4", Timeout: 5 * time.Second},
		Callback:  config.CallbackConfig{Secret: opts.callbackSecret, TokenTTL: time.Hour},
		Poll:      config.PollConfig{Interval: 20 * time.Millisecond, Ceiling: 5 * time.Second},
	}

	notifications := store.NewMemoryNotificationStore(cfg.Store.NotificationTTL)
	jobs := store.NewMemoryJobStore()

	deps, err := server.NewDeps(context.Background(), cfg, server.Backends{
		Notifications: notifications,
		Jobs:          jobs,
		Counter:       middleware.NewMemoryCounter(),
	})
	require.NoError(t, err)

	return &testApp{
		app:           server.New(deps),
		provider:      provider,
		notifications: notifications,
		jobs:          jobs,
	}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &result), "body: %s", body)
	return result
}

// assertStatus checks the response status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body := readBody(t, resp)
		t.Fatalf("expected status %d, got %d. Body: %s", expected, resp.StatusCode, body)
	}
}
