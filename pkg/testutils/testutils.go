// Package testutils provides shared fixtures for tests: scripted LLM
// providers and minimal configurations.
package testutils

import (
	"context"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/llms"
)

// ScriptedTurn is one provider response: a fixed text or tool-call
// answer, an explicit chunk sequence for streaming, or an error.
type ScriptedTurn struct {
	Text   string
	Calls  []llms.ToolCall
	Chunks []llms.StreamChunk
	Err    error
}

// ScriptedProvider replays a fixed sequence of turns as an
// llms.LLMProvider. Once the script is exhausted the last turn repeats.
// Message histories passed to each call are recorded in Received.
type ScriptedProvider struct {
	turns    []ScriptedTurn
	idx      int
	Received [][]llms.Message
}

// NewScriptedProvider returns a provider that replays turns in order.
func NewScriptedProvider(turns ...ScriptedTurn) *ScriptedProvider {
	return &ScriptedProvider{turns: turns}
}

func (p *ScriptedProvider) turn() ScriptedTurn {
	if p.idx >= len(p.turns) {
		return p.turns[len(p.turns)-1]
	}
	turn := p.turns[p.idx]
	p.idx++
	return turn
}

func (p *ScriptedProvider) Generate(ctx context.Context, messages []llms.Message, _ []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	p.Received = append(p.Received, messages)
	turn := p.turn()
	if turn.Err != nil {
		return "", nil, 0, turn.Err
	}
	return turn.Text, turn.Calls, 7, nil
}

// GenerateStreaming replays the turn's chunk script. Turns without an
// explicit script stream their text and tool calls followed by a done
// chunk.
func (p *ScriptedProvider) GenerateStreaming(ctx context.Context, messages []llms.Message, _ []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	p.Received = append(p.Received, messages)
	turn := p.turn()
	if turn.Err != nil {
		return nil, turn.Err
	}

	chunks := turn.Chunks
	if chunks == nil {
		if turn.Text != "" {
			chunks = append(chunks, llms.StreamChunk{Type: llms.ChunkTypeText, Text: turn.Text})
		}
		for i := range turn.Calls {
			chunks = append(chunks, llms.StreamChunk{Type: llms.ChunkTypeToolCall, ToolCall: &turn.Calls[i]})
		}
		chunks = append(chunks, llms.StreamChunk{Type: llms.ChunkTypeDone, Tokens: 7})
	}

	ch := make(chan llms.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func (p *ScriptedProvider) GetModelName() string    { return "scripted-model" }
func (p *ScriptedProvider) GetMaxTokens() int       { return 0 }
func (p *ScriptedProvider) GetTemperature() float64 { return 0 }
func (p *ScriptedProvider) Close() error            { return nil }

// EndlessProvider streams text chunks until the caller's context ends.
// Cancellation tests use it to keep a stream busy indefinitely.
type EndlessProvider struct {
	Token string
}

func (p *EndlessProvider) Generate(ctx context.Context, _ []llms.Message, _ []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	<-ctx.Done()
	return "", nil, 0, ctx.Err()
}

func (p *EndlessProvider) GenerateStreaming(ctx context.Context, _ []llms.Message, _ []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	token := p.Token
	if token == "" {
		token = "tick "
	}
	ch := make(chan llms.StreamChunk)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ch <- llms.StreamChunk{Type: llms.ChunkTypeText, Text: token}:
			}
		}
	}()
	return ch, nil
}

func (p *EndlessProvider) GetModelName() string    { return "endless-model" }
func (p *EndlessProvider) GetMaxTokens() int       { return 0 }
func (p *EndlessProvider) GetTemperature() float64 { return 0 }
func (p *EndlessProvider) Close() error            { return nil }

// TestAgentConfig returns a minimal valid agent configuration for testing.
func TestAgentConfig() *config.AgentConfig {
	return &config.AgentConfig{
		Description: "Test agent",
		LLM:         "main",
	}
}
