package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: test-service
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 30s
llms:
  main:
    type: openai
    model: gpt-4o-mini
    api_key: sk-test
    temperature: 0.3
agents:
  Agent-AI:
    description: Test agent
    llm: main
    tools:
      - add
      - get_weather
    max_iterations: 5
`

func TestParseYAML(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-service", cfg.Name)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	llm := cfg.LLMs["main"]
	require.NotNil(t, llm)
	assert.Equal(t, "openai", llm.Type)
	assert.Equal(t, "gpt-4o-mini", llm.Model)
	assert.Equal(t, "sk-test", llm.APIKey)
	require.NotNil(t, llm.Temperature)
	assert.Equal(t, 0.3, *llm.Temperature)
	assert.Equal(t, 4096, llm.MaxTokens)

	agent := cfg.Agents["Agent-AI"]
	require.NotNil(t, agent)
	assert.Equal(t, "Test agent", agent.Description)
	assert.Equal(t, "main", agent.LLM)
	assert.Equal(t, []string{"add", "get_weather"}, agent.Tools)
	assert.Equal(t, 5, agent.MaxIterations)
	assert.Equal(t, "Operator", agent.UserInfo)
}

func TestParseJSON(t *testing.T) {
	clearProviderEnv(t)

	data := []byte(`{
		"llms": {"main": {"type": "openai", "model": "gpt-4o-mini", "api_key": "sk-test"}},
		"agents": {"Agent-AI": {"llm": "main"}}
	}`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMs["main"].Model)
	assert.Equal(t, "main", cfg.Agents["Agent-AI"].LLM)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte("{invalid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestParseValidationFailure(t *testing.T) {
	clearProviderEnv(t)

	_, err := Parse([]byte("name: broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "at least one llm provider")
}

func TestParseExpandsEnvVars(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AGENT_TEST_KEY", "sk-from-env")
	t.Setenv("AGENT_TEST_PORT", "9191")

	data := []byte(`
server:
  port: ${AGENT_TEST_PORT}
llms:
  main:
    type: openai
    model: ${AGENT_TEST_MODEL:-gpt-4o-mini}
    api_key: ${AGENT_TEST_KEY}
agents:
  Agent-AI:
    llm: main
`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMs["main"].Model)
	assert.Equal(t, "sk-from-env", cfg.LLMs["main"].APIKey)
}

func TestLoadFile(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "test-service", cfg.Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoaderWatchReload(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	changed := make(chan *Config, 4)
	loader := NewLoader(path, WithOnChange(func(cfg *Config) {
		changed <- cfg
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- loader.Watch(ctx)
	}()

	updated := []byte(`
name: reloaded-service
llms:
  main:
    type: openai
    model: gpt-4o-mini
    api_key: sk-test
agents:
  Agent-AI:
    llm: main
`)

	// The watch is established asynchronously, so keep rewriting until
	// a reload comes through.
	var got *Config
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, updated, 0o644); err != nil {
			return false
		}
		select {
		case got = <-changed:
			return true
		default:
			return false
		}
	}, 10*time.Second, 200*time.Millisecond, "expected a config reload")

	assert.Equal(t, "reloaded-service", got.Name)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestLoaderWatchMissingDir(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing", "config.yaml"))

	err := loader.Watch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
