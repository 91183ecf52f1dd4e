package llms

import (
	"context"
	"fmt"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/registry"
)

// LLMProvider is the interface implemented by all model backends.
type LLMProvider interface {
	// Generate performs a non-streaming request.
	// Returns the response text, any requested tool calls, and the total
	// token usage reported by the backend.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (text string, toolCalls []ToolCall, tokens int, err error)

	// GenerateStreaming performs a streaming request. The returned channel
	// is closed after a terminal chunk (done or error).
	GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error)

	GetModelName() string

	GetMaxTokens() int

	GetTemperature() float64

	Close() error
}

// LLMRegistry holds named providers.
type LLMRegistry struct {
	*registry.BaseRegistry[LLMProvider]
}

func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[LLMProvider](),
	}
}

// CreateFromConfig builds a provider from its configuration and registers
// it under name.
func (r *LLMRegistry) CreateFromConfig(name string, cfg *config.LLMConfig) (LLMProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm %q: config cannot be nil", name)
	}

	var provider LLMProvider
	var err error

	switch cfg.Type {
	case "openai":
		provider, err = NewOpenAIProvider(cfg)
	case "gemini":
		provider, err = NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("llm %q: unsupported type %q (supported: openai, gemini)", name, cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("llm %q: %w", name, err)
	}

	if err := r.Register(name, provider); err != nil {
		return nil, fmt.Errorf("llm %q: %w", name, err)
	}

	return provider, nil
}

// GetLLM returns the provider registered under name.
func (r *LLMRegistry) GetLLM(name string) (LLMProvider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("llm provider %q not found", name)
	}
	return provider, nil
}

// Close shuts down every registered provider.
func (r *LLMRegistry) Close() error {
	var firstErr error
	for _, provider := range r.List() {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
