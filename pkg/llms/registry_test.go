package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagnusDot/Agent/pkg/config"
)

func TestCreateFromConfigOpenAI(t *testing.T) {
	reg := NewLLMRegistry()

	provider, err := reg.CreateFromConfig("main", &config.LLMConfig{
		Type:  "openai",
		Model: "test-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "test-model", provider.GetModelName())

	got, err := reg.GetLLM("main")
	require.NoError(t, err)
	assert.Same(t, provider.(*OpenAIProvider), got.(*OpenAIProvider))
}

func TestCreateFromConfigNilConfig(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateFromConfig("main", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

func TestCreateFromConfigUnsupportedType(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateFromConfig("main", &config.LLMConfig{Type: "anthropic", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported type "anthropic"`)
}

func TestCreateFromConfigDuplicateName(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateFromConfig("main", &config.LLMConfig{Type: "openai", Model: "m"})
	require.NoError(t, err)

	_, err = reg.CreateFromConfig("main", &config.LLMConfig{Type: "openai", Model: "m"})
	require.Error(t, err)
}

func TestGetLLMNotFound(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.GetLLM("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm provider "ghost" not found`)
}

func TestRegistryClose(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateFromConfig("main", &config.LLMConfig{Type: "openai", Model: "m"})
	require.NoError(t, err)

	assert.NoError(t, reg.Close())
}
