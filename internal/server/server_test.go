package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox-backend/internal/ai"
	"blackbox-backend/internal/analytics"
	"blackbox-backend/internal/chat"
	"blackbox-backend/internal/settings"
	"blackbox-backend/internal/tasks"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, messages []ai.Message, _ ai.Params) (string, error) {
	return messages[len(messages)-1].Content.PlainText(), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	client := echoCompleter{}
	events := analytics.NewMemorySink(0)
	hub := analytics.NewHub()
	t.Cleanup(hub.Close)

	svc := settings.NewService(settings.NewMemoryKV(), settings.Defaults(), ai.DefaultSystemPrompt)
	insights := ai.NewInsightGenerator(client, ai.Params{MaxTokens: 200, Temperature: 0.7})

	taskStore := tasks.NewStore(insights)
	taskStore.Seed(tasks.DemoTasks()...)
	t.Cleanup(taskStore.Wait)

	chatStore := chat.NewStore(client, svc)
	t.Cleanup(chatStore.Wait)

	return New(":0", []string{"http://localhost:3000"}, Deps{
		Tasks:     tasks.New(taskStore, insights, events),
		Chat:      chat.New(chatStore, client, svc, events),
		Settings:  &settings.Handler{Service: svc},
		Analytics: &analytics.Handler{Sink: events, Sampler: analytics.NewSampler("@every 1h", hub), Hub: hub},
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/tasks",
		"/api/tasks/stats",
		"/api/tasks/status",
		"/api/chat",
		"/api/chat/messages",
		"/api/settings",
		"/api/settings/system-prompt",
		"/api/analytics/metrics",
		"/api/analytics/performance",
		"/api/analytics/events",
	} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tasks    tasks.Stats      `json:"tasks"`
		Messages int              `json:"messages"`
		Metrics  analytics.Gauges `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Tasks.Total)
	assert.Equal(t, 1, body.Messages)
	assert.Equal(t, 78, body.Metrics.Neural)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/1/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestShutdown(t *testing.T) {
	s := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
