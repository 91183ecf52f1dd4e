package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/MagnusDot/Agent"
	"github.com/MagnusDot/Agent/pkg/api"
	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/llms"
	"github.com/MagnusDot/Agent/pkg/runtime"
	"github.com/MagnusDot/Agent/pkg/stream"
	"github.com/MagnusDot/Agent/pkg/testutils"
	"github.com/MagnusDot/Agent/pkg/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler wires a real agent over the builtin tools with the
// given provider and returns the server's handler tree.
func newTestHandler(t *testing.T, provider llms.LLMProvider, mutate func(*config.AgentConfig)) http.Handler {
	t.Helper()

	reg := tools.NewToolRegistry()
	require.NoError(t, reg.RegisterSource(context.Background(), tools.NewBuiltinToolSource()))

	cfg := testutils.TestAgentConfig()
	cfg.Description = "Answers questions, tells jokes and reports the weather"
	if mutate != nil {
		mutate(cfg)
	}

	ag, err := runtime.NewAgent("Agent-AI", cfg, provider, reg)
	require.NoError(t, err)

	agents := runtime.NewAgentRegistry()
	require.NoError(t, agents.Register("Agent-AI", ag))

	return New(config.ServerConfig{}, agents, WithLogger(discardLogger())).Router()
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAgentResponse(t *testing.T, rec *httptest.ResponseRecorder) api.AgentResponse {
	t.Helper()
	var resp api.AgentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func frameTypes(frames []stream.Frame) []string {
	types := make([]string, len(frames))
	for i, frame := range frames {
		types[i] = frame.Type
	}
	return types
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := getPath(handler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, agent.Version, health.Version)
	assert.NotEmpty(t, health.Message)
}

func TestListAgents(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := getPath(handler, "/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []api.AgentInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Agent-AI", infos[0].Key)
	assert.NotEmpty(t, infos[0].Description)
}

func TestInvoke(t *testing.T) {
	provider := testutils.NewScriptedProvider(
		testutils.ScriptedTurn{Calls: []llms.ToolCall{{
			ID:   "call-1",
			Name: "add",
			Args: map[string]any{"first": 2, "second": 2},
		}}},
		testutils.ScriptedTurn{Text: "2 + 2 = 4"},
	)
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "What is 2 + 2?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAgentResponse(t, rec)
	assert.Contains(t, resp.Content, "4")

	_, err := uuid.Parse(resp.ThreadID)
	assert.NoError(t, err, "thread id should be generated when absent")
	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err, "run id should always be generated")
}

func TestInvokeKeepsProvidedThreadID(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "Hello!"}), nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "Hi", "thread_id": "thread-42"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAgentResponse(t, rec)
	assert.Equal(t, "thread-42", resp.ThreadID)
}

func TestInvokeThreadContinuity(t *testing.T) {
	provider := testutils.NewScriptedProvider(
		testutils.ScriptedTurn{Text: "Hi there!"},
		testutils.ScriptedTurn{Text: "Still here."},
	)
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "Hello", "thread_id": "thread-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postJSON(handler, "/Agent-AI/invoke", `{"message": "Are you there?", "thread_id": "thread-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, provider.Received, 2)
	second := provider.Received[1]
	require.NotEmpty(t, second)
	assert.Equal(t, llms.RoleSystem, second[0].Role)
	assert.Contains(t, second[0].Content, "Hello", "prior user turn should be in the rendered history")
	assert.Contains(t, second[0].Content, "Hi there!", "prior assistant turn should be in the rendered history")
}

func TestInvokeUnknownAgent(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := postJSON(handler, "/ghost/invoke", `{"message": "Hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "NotFoundError", resp.Error)
	assert.Equal(t, `agent "ghost" not found`, resp.Message)
	assert.Equal(t, "/ghost/invoke", resp.Path)
}

func TestInvokeInvalidBody(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "AgentError", resp.Error)
	assert.Equal(t, "Failed to process input: invalid request body", resp.Message)
}

func TestInvokeMissingMessage(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"thread_id": "thread-1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "AgentError", resp.Error)
	assert.Equal(t, "Failed to process input: message is required", resp.Message)
}

func TestInvokeInterrupt(t *testing.T) {
	provider := testutils.NewScriptedProvider(
		testutils.ScriptedTurn{Calls: []llms.ToolCall{{
			ID:   "call-1",
			Name: "divide",
			Args: map[string]any{"first": 1, "second": 0},
		}}},
	)
	handler := newTestHandler(t, provider, func(cfg *config.AgentConfig) {
		cfg.RequireApproval = []string{"divide"}
	})

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "Divide 1 by 0"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAgentResponse(t, rec)
	assert.Contains(t, resp.Content, `Tool "divide" requires approval`)
}

func TestInvokeProviderError(t *testing.T) {
	provider := testutils.NewScriptedProvider(testutils.ScriptedTurn{Err: errors.New("model exploded")})
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "Hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "AgentError", resp.Error)
	assert.Equal(t, "An unexpected error occurred", resp.Message)
	assert.NotContains(t, resp.Message, "model exploded", "provider errors must not leak to clients")
}

func TestInvokeCancelled(t *testing.T) {
	provider := testutils.NewScriptedProvider(testutils.ScriptedTurn{Err: context.Canceled})
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/invoke", `{"message": "Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAgentResponse(t, rec)
	assert.Equal(t, "Generation was stopped.", resp.Content)
}

func TestStreamWeather(t *testing.T) {
	provider := testutils.NewScriptedProvider(
		testutils.ScriptedTurn{Chunks: []llms.StreamChunk{
			{Type: llms.ChunkTypeText, Text: "Let me check the weather."},
			{Type: llms.ChunkTypeToolCall, ToolCall: &llms.ToolCall{
				ID:   "call-1",
				Name: "get_weather",
				Args: map[string]any{"city": "Paris"},
			}},
			{Type: llms.ChunkTypeDone, Tokens: 7},
		}},
		testutils.ScriptedTurn{Text: "It is sunny in Paris today."},
	)
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/stream", `{"message": "Weather in Paris?", "thread_id": "thread-7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	frames, err := stream.DecodeFrames(rec.Body)
	require.NoError(t, err)
	require.Equal(t, []string{
		stream.FrameStreamStart,
		stream.FrameStreamToken,
		stream.FrameToolExecutionStart,
		"weather_lookup",
		stream.FrameToolExecutionComplete,
		stream.FrameStreamToken,
		stream.FrameStreamEnd,
	}, frameTypes(frames))

	var start struct {
		Name   string         `json:"name"`
		Params map[string]any `json:"params"`
	}
	require.NoError(t, json.Unmarshal(frames[2].Content, &start))
	assert.Equal(t, "get_weather", start.Name)
	assert.Equal(t, "Paris", start.Params["city"])

	var lookup map[string]any
	require.NoError(t, json.Unmarshal(frames[3].Content, &lookup))
	assert.Equal(t, "Paris", lookup["city"])

	var token struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(frames[5].Content, &token))
	assert.Equal(t, "It is sunny in Paris today.", token.Token)

	var end struct {
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(frames[6].Content, &end))
	assert.Equal(t, "thread-7", end.ThreadID)
}

func TestStreamProviderError(t *testing.T) {
	provider := testutils.NewScriptedProvider(testutils.ScriptedTurn{Err: errors.New("model exploded")})
	handler := newTestHandler(t, provider, nil)

	rec := postJSON(handler, "/Agent-AI/stream", `{"message": "Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	frames, err := stream.DecodeFrames(rec.Body)
	require.NoError(t, err)
	require.Equal(t, []string{
		stream.FrameStreamStart,
		stream.FrameError,
		stream.FrameStreamEnd,
	}, frameTypes(frames))

	var message string
	require.NoError(t, json.Unmarshal(frames[1].Content, &message))
	assert.Equal(t, "An unexpected error occurred", message)
}

func TestStreamUnknownAgent(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := postJSON(handler, "/ghost/stream", `{"message": "Hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"),
		"errors before the stream opens are plain JSON")

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "NotFoundError", resp.Error)
}

// cancellingRecorder cancels the request context after limit body
// writes, simulating a client that disconnects mid-stream. Writes keep
// succeeding afterwards so the closing frame stays observable.
type cancellingRecorder struct {
	*httptest.ResponseRecorder
	cancel context.CancelFunc
	writes int
	limit  int
}

func (r *cancellingRecorder) Write(p []byte) (int, error) {
	r.writes++
	if r.writes == r.limit {
		r.cancel()
	}
	return r.ResponseRecorder.Write(p)
}

func TestStreamCancel(t *testing.T) {
	handler := newTestHandler(t, &testutils.EndlessProvider{Token: "tick "}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/Agent-AI/stream", strings.NewReader(`{"message": "Go on forever", "thread_id": "thread-9"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(ctx)
	rec := &cancellingRecorder{ResponseRecorder: httptest.NewRecorder(), cancel: cancel, limit: 3}

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}

	frames, err := stream.DecodeFrames(rec.Body)
	require.NoError(t, err)
	require.NotEmpty(t, frames)
	assert.Equal(t, stream.FrameStreamStart, frames[0].Type)

	last := frames[len(frames)-1]
	require.Equal(t, stream.FrameStreamEnd, last.Type, "a cancelled stream still closes with its end frame")

	var end struct {
		ThreadID string `json:"thread_id"`
	}
	require.NoError(t, json.Unmarshal(last.Content, &end))
	assert.Equal(t, "thread-9", end.ThreadID)
}

func TestMetricsDisabledByDefault(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	rec := getPath(handler, "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t, testutils.NewScriptedProvider(testutils.ScriptedTurn{Text: "ok"}), nil)

	req := httptest.NewRequest(http.MethodOptions, "/Agent-AI/stream", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
