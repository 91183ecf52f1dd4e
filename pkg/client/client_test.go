package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagnusDot/Agent/pkg/api"
	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/runtime"
	"github.com/MagnusDot/Agent/pkg/server"
	"github.com/MagnusDot/Agent/pkg/stream"
	"github.com/MagnusDot/Agent/pkg/testutils"
	"github.com/MagnusDot/Agent/pkg/tools"
)

func TestLoadConfigEnvWins(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(file, []byte(`{"api_url": "http://file.example:8081"}`), 0o644))
	t.Chdir(dir)

	t.Setenv("API_URL", "http://env.example:9090")
	t.Setenv("BEARER_TOKEN", "")

	cfg := LoadConfig()
	assert.Equal(t, "http://env.example:9090", cfg.APIURL)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, configFileName)
	payload := `{
		"api_url": "http://file.example:8081",
		"bearer_token": "file-token",
		"agents": [{"key": "Agent-AI", "description": "configured agent"}]
	}`
	require.NoError(t, os.WriteFile(file, []byte(payload), 0o644))
	t.Chdir(dir)

	t.Setenv("API_URL", "")
	t.Setenv("BEARER_TOKEN", "env-token")

	cfg := LoadConfig()
	assert.Equal(t, "http://file.example:8081", cfg.APIURL)
	assert.Equal(t, "file-token", cfg.BearerToken, "a configured token is not overridden by the environment")
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "Agent-AI", cfg.Agents[0].Key)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_URL", "")
	t.Setenv("BEARER_TOKEN", "env-token")

	cfg := LoadConfig()
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "env-token", cfg.BearerToken)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "0.1.0"})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, BearerToken: "secret"})
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "0.1.0", health.Version)
}

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]api.AgentInfo{{Key: "Agent-AI", Description: "helper"}})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "Agent-AI", agents[0].Key)
}

func TestInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Agent-AI/invoke", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var input api.UserInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "Hello", input.Message)
		assert.Equal(t, "thread-1", input.ThreadID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.AgentResponse{
			Content:  "Hi there!",
			ThreadID: "thread-1",
			RunID:    "run-1",
		})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	resp, err := c.Invoke(context.Background(), "Agent-AI", api.UserInput{Message: "Hello", ThreadID: "thread-1"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Content)
	assert.Equal(t, "thread-1", resp.ThreadID)
	assert.Equal(t, "run-1", resp.RunID)
}

func TestInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:   "NotFoundError",
			Message: `agent "ghost" not found`,
			Path:    "/ghost/invoke",
		})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	_, err := c.Invoke(context.Background(), "ghost", api.UserInput{Message: "Hello"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NotFoundError", apiErr.Kind)
	assert.Equal(t, `agent "ghost" not found`, apiErr.Message)
	assert.Equal(t, "/ghost/invoke", apiErr.Path)
}

func TestInvokeNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	_, err := c.Invoke(context.Background(), "Agent-AI", api.UserInput{Message: "Hello"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "HTTPError", apiErr.Kind)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Agent-AI/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, frame := range []stream.Frame{
			stream.StartFrame(),
			stream.TokenFrame("Hello"),
			stream.EndFrame("thread-1"),
		} {
			_, _ = w.Write(frame.Encode())
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	frames, err := c.Stream(context.Background(), "Agent-AI", api.UserInput{Message: "Hello"})
	require.NoError(t, err)

	var collected []stream.Frame
	for frame := range frames {
		collected = append(collected, frame)
	}
	require.Len(t, collected, 3)
	assert.Equal(t, stream.FrameStreamStart, collected[0].Type)
	assert.Equal(t, stream.FrameStreamToken, collected[1].Type)
	assert.Equal(t, stream.FrameStreamEnd, collected[2].Type)
}

func TestStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "NotFoundError", Message: "agent not found"})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	frames, err := c.Stream(context.Background(), "ghost", api.UserInput{Message: "Hello"})
	assert.Nil(t, frames)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NotFoundError", apiErr.Kind)
}

// serviceURL spins up the real server over a scripted provider so the
// client is exercised against the actual handler stack.
func serviceURL(t *testing.T, provider *testutils.ScriptedProvider) string {
	t.Helper()

	reg := tools.NewToolRegistry()
	require.NoError(t, reg.RegisterSource(context.Background(), tools.NewBuiltinToolSource()))

	ag, err := runtime.NewAgent("Agent-AI", testutils.TestAgentConfig(), provider, reg)
	require.NoError(t, err)

	agents := runtime.NewAgentRegistry()
	require.NoError(t, agents.Register("Agent-AI", ag))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(server.New(config.ServerConfig{}, agents, server.WithLogger(log)).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClientAgainstService(t *testing.T) {
	provider := testutils.NewScriptedProvider(
		testutils.ScriptedTurn{Text: "Hello from the agent."},
		testutils.ScriptedTurn{Text: "Hello again."},
	)
	c := New(Config{APIURL: serviceURL(t, provider)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.Invoke(ctx, "Agent-AI", api.UserInput{Message: "Hi", ThreadID: "thread-1"})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the agent.", resp.Content)
	assert.Equal(t, "thread-1", resp.ThreadID)

	frames, err := c.Stream(ctx, "Agent-AI", api.UserInput{Message: "Hi again", ThreadID: "thread-1"})
	require.NoError(t, err)

	var types []string
	var lastContent []byte
	for frame := range frames {
		types = append(types, frame.Type)
		lastContent = frame.Content
	}
	require.Equal(t, []string{
		stream.FrameStreamStart,
		stream.FrameStreamToken,
		stream.FrameStreamEnd,
	}, types)

	var end struct {
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(lastContent, &end))
	assert.Equal(t, "thread-1", end.ThreadID)

	_, err = c.Invoke(ctx, "ghost", api.UserInput{Message: "Hi"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
