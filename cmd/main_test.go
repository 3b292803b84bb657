package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/internal/connections"
	"github.com/deepgram/relay/internal/services"
	"github.com/deepgram/relay/internal/testutil/assistantapi"
)

func newTestConfig(assistantURL string) *config.Config {
	return &config.Config{
		Port:              "0",
		ChatRoutePaths:    []string{"/api/posts", "/fastapi/posts"},
		AllowedOrigins:    []string{"http://localhost:5173"},
		HTTPClientTimeout: 5 * time.Second,
		OpenAIKey:         "sk-test",
		OpenAIBaseURL:     assistantURL,
		SentimentProvider: config.SentimentProviderNone,
		SentimentTarget:   config.SentimentTargetUser,
		Poll:              config.PollConfig{Interval: time.Millisecond, Timeout: 5 * time.Second},
		RateLimit:         config.RateLimitConfig{Enabled: false, MaxHits: 60, Window: time.Minute},
		WebSocket:         config.WebSocketConfig{PongWait: 30 * time.Second, PingPeriod: 27 * time.Second, WriteWait: 10 * time.Second},
	}
}

func startServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	svcs, err := services.InitializeServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svcs.Close() })

	server := httptest.NewServer(setupRouter(svcs, cfg, connections.NewManager(cfg.WebSocket)))
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return resp.StatusCode, decoded
}

func TestMainServer(t *testing.T) {
	api := assistantapi.NewServer()
	defer api.Close()
	api.RunStatuses = []string{"queued", "in_progress", "completed"}
	api.Replies = []assistantapi.Reply{
		{ID: "msg_a", Fragments: []string{"Hello", " there【4:0†source】"}},
		{ID: "msg_b", Fragments: []string{"!"}},
	}

	server := startServer(t, newTestConfig(api.BaseURL()))

	t.Run("chat endpoint", func(t *testing.T) {
		status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Hello there!", body["response"])
		assert.Contains(t, body, "response_time")
		assert.NotContains(t, body, "sentiment")
		counts := api.Counts()
		assert.Equal(t, 1, counts.Threads)
		assert.Equal(t, 1, counts.Runs)
		assert.Equal(t, 3, counts.RunFetches)
		assert.Equal(t, []string{"Hi"}, counts.UserMessages)
	})

	t.Run("chat route alias", func(t *testing.T) {
		status, body := post(t, server.URL+"/fastapi/posts", `{"user_message":"Hi again","assistant_id":"asst_1"}`)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Hello there!", body["response"])
	})

	t.Run("unknown assistant", func(t *testing.T) {
		status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_missing"}`)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, body["detail"], "internal server error:")
		assert.Contains(t, body["detail"], "asst_missing")
	})

	t.Run("invalid request", func(t *testing.T) {
		status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi"}`)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["detail"], "AssistantID")
	})

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/posts", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/invalid")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/posts")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestFailedRunReturnsRunError(t *testing.T) {
	api := assistantapi.NewServer()
	defer api.Close()
	api.RunStatuses = []string{"in_progress", "failed"}
	api.RunLastError = map[string]string{"code": "server_error", "message": "Sorry, something went wrong."}

	server := startServer(t, newTestConfig(api.BaseURL()))

	status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body["detail"], "Sorry, something went wrong.")
	assert.Equal(t, 0, api.Counts().ListCalls)
}

func TestSentimentAnnotation(t *testing.T) {
	api := assistantapi.NewServer()
	defer api.Close()
	api.Replies = []assistantapi.Reply{{ID: "msg_a", Fragments: []string{"Glad to help"}}}

	t.Run("score backend", func(t *testing.T) {
		google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "g-key", r.URL.Query().Get("key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"documentSentiment":{"score":0.6,"magnitude":1.4}}`))
		}))
		defer google.Close()

		cfg := newTestConfig(api.BaseURL())
		cfg.SentimentProvider = config.SentimentProviderGoogle
		cfg.GoogleAPIKey = "g-key"
		cfg.GoogleBaseURL = google.URL
		server := startServer(t, cfg)

		status, body := post(t, server.URL+"/api/posts", `{"user_message":"This is great","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Glad to help", body["response"])
		assert.Equal(t, "positive", body["sentiment"])
		assert.Equal(t, 0.6, body["sentiment_score"])
		assert.Equal(t, 1.4, body["sentiment_magnitude"])
	})

	t.Run("failing label backend fails the request", func(t *testing.T) {
		clova := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"errorCode":"200","message":"Authentication Failed"}}`))
		}))
		defer clova.Close()

		cfg := newTestConfig(api.BaseURL())
		cfg.SentimentProvider = config.SentimentProviderClova
		cfg.ClovaClientID = "id"
		cfg.ClovaClientSecret = "secret"
		cfg.ClovaBaseURL = clova.URL
		server := startServer(t, cfg)

		status, body := post(t, server.URL+"/api/posts", `{"user_message":"This is great","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, body["detail"], "Authentication Failed")
		assert.NotContains(t, body, "response")
	})
}

func TestRateLimitAndAuth(t *testing.T) {
	api := assistantapi.NewServer()
	defer api.Close()
	api.Replies = []assistantapi.Reply{{ID: "msg_a", Fragments: []string{"ok"}}}

	t.Run("rate limited", func(t *testing.T) {
		cfg := newTestConfig(api.BaseURL())
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, MaxHits: 1, Window: time.Minute}
		server := startServer(t, cfg)

		status, _ := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusOK, status)

		status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Equal(t, "rate limit exceeded", body["detail"])
	})

	t.Run("failed token guesses are throttled", func(t *testing.T) {
		cfg := newTestConfig(api.BaseURL())
		cfg.AuthJWTSecret = []byte("secret")
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, MaxHits: 1, Window: time.Minute}
		server := startServer(t, cfg)

		status, _ := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Equal(t, "rate limit exceeded", body["detail"])
	})

	t.Run("auth required when secret configured", func(t *testing.T) {
		cfg := newTestConfig(api.BaseURL())
		cfg.AuthJWTSecret = []byte("secret")
		server := startServer(t, cfg)

		status, _ := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestNewServerHasNoWriteDeadline(t *testing.T) {
	for _, timeout := range []time.Duration{0, 5 * time.Second} {
		cfg := newTestConfig("http://127.0.0.1:0/v1")
		cfg.Poll.Timeout = timeout

		server := newServer(cfg, http.NotFoundHandler())
		assert.Equal(t, ":0", server.Addr)
		assert.Zero(t, server.WriteTimeout, "poll timeout %s", timeout)
		assert.NotZero(t, server.ReadHeaderTimeout)
	}
}

func TestSlowRunOutlivesClientTimeout(t *testing.T) {
	api := assistantapi.NewServer()
	defer api.Close()
	api.RunStatuses = []string{"queued", "in_progress", "in_progress", "in_progress", "in_progress", "in_progress", "completed"}
	api.Replies = []assistantapi.Reply{{ID: "msg_a", Fragments: []string{"done"}}}

	// Polling takes longer than any single upstream call is allowed to
	cfg := newTestConfig(api.BaseURL())
	cfg.HTTPClientTimeout = 200 * time.Millisecond
	cfg.Poll = config.PollConfig{Interval: 60 * time.Millisecond}

	svcs, err := services.InitializeServices(cfg)
	require.NoError(t, err)
	defer svcs.Close()

	built := newServer(cfg, setupRouter(svcs, cfg, connections.NewManager(cfg.WebSocket)))
	server := httptest.NewUnstartedServer(built.Handler)
	server.Config.WriteTimeout = built.WriteTimeout
	server.Start()
	defer server.Close()

	status, body := post(t, server.URL+"/api/posts", `{"user_message":"Hi","assistant_id":"asst_1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "done", body["response"])
}
