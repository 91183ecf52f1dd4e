package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MagnusDot/Agent/pkg/config"
)

// OpenAIProvider talks to the OpenAI chat completions API or any
// compatible endpoint (LM Studio, vLLM, llama.cpp server) via base_url.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIProvider builds a provider from configuration. The API key may
// be a placeholder for local endpoints that do not check it.
func NewOpenAIProvider(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	temperature := 0.7
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	return &OpenAIProvider{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *OpenAIProvider) GetModelName() string     { return p.model }
func (p *OpenAIProvider) GetMaxTokens() int        { return p.maxTokens }
func (p *OpenAIProvider) GetTemperature() float64  { return p.temperature }
func (p *OpenAIProvider) Close() error             { return nil }

func (p *OpenAIProvider) buildParams(messages []Message, tools []ToolDefinition) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    convertMessages(messages),
		Temperature: param.NewOpt(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.maxTokens))
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls)),
			}
			if msg.Content != "" {
				assistant.Content.OfString = param.NewOpt(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					args = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func convertTools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}

func parseCallArgs(name, raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("parsing arguments for tool %q: %w", name, err)
	}
	return args, nil
}

// Generate performs a non-streaming chat completion.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(messages, tools))
	if err != nil {
		return "", nil, 0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, 0, fmt.Errorf("openai completion: empty response")
	}

	choice := resp.Choices[0]
	var toolCalls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		args, err := parseCallArgs(tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return "", nil, 0, fmt.Errorf("openai completion: %w", err)
		}
		toolCalls = append(toolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	return choice.Message.Content, toolCalls, int(resp.Usage.TotalTokens), nil
}

// GenerateStreaming performs a streaming chat completion. Text arrives as
// text chunks, tool-call argument fragments as tool_call_delta chunks, and
// fully accumulated calls as tool_call chunks once the model finishes.
func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(messages, tools))

	ch := make(chan StreamChunk, 100)
	go func() {
		defer close(ch)

		type pendingCall struct {
			id   string
			name string
			args strings.Builder
		}

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var calls []*pendingCall
		var totalTokens int

		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				totalTokens = int(chunk.Usage.TotalTokens)
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				if !send(StreamChunk{Type: ChunkTypeText, Text: delta.Content}) {
					return
				}
			}

			for _, dc := range delta.ToolCalls {
				// A chunk carrying an ID opens a new call; later chunks
				// append argument fragments to the most recent one.
				if dc.ID != "" {
					calls = append(calls, &pendingCall{id: dc.ID, name: dc.Function.Name})
				}
				if len(calls) == 0 {
					continue
				}
				last := calls[len(calls)-1]
				if dc.ID == "" && dc.Function.Name != "" && last.name == "" {
					last.name = dc.Function.Name
				}
				if dc.Function.Arguments != "" {
					last.args.WriteString(dc.Function.Arguments)
					if !send(StreamChunk{Type: ChunkTypeToolCallDelta, Text: dc.Function.Arguments}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(StreamChunk{Type: ChunkTypeError, Error: fmt.Errorf("openai stream: %w", err)})
			return
		}

		for _, call := range calls {
			args, err := parseCallArgs(call.name, call.args.String())
			if err != nil {
				send(StreamChunk{Type: ChunkTypeError, Error: err})
				return
			}
			if !send(StreamChunk{Type: ChunkTypeToolCall, ToolCall: &ToolCall{
				ID:   call.id,
				Name: call.name,
				Args: args,
			}}) {
				return
			}
		}

		send(StreamChunk{Type: ChunkTypeDone, Tokens: totalTokens})
	}()

	return ch, nil
}
