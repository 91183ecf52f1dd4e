package llms

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MagnusDot/Agent/pkg/config"
)

// GeminiProvider talks to the Google Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewGeminiProvider(cfg *config.LLMConfig) (*GeminiProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	temperature := 0.7
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	return &GeminiProvider{
		client:      client,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *GeminiProvider) GetModelName() string    { return p.model }
func (p *GeminiProvider) GetMaxTokens() int       { return p.maxTokens }
func (p *GeminiProvider) GetTemperature() float64 { return p.temperature }
func (p *GeminiProvider) Close() error            { return nil }

// stableCallID derives a deterministic ID for tool calls the API returns
// without one, so results can be matched back to their call.
func stableCallID(name string, args map[string]any) string {
	payload, _ := json.Marshal(args)
	sum := sha256.Sum256(append([]byte(name), payload...))
	return "call_" + hex.EncodeToString(sum[:8])
}

func (p *GeminiProvider) buildRequest(messages []Message, tools []ToolDefinition) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system strings.Builder
	var contents []*genai.Content

	// Gemini needs the function name on each response part; collect the
	// names from earlier call parts keyed by call ID.
	callNames := map[string]string{}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(msg.Content)
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: tc.Args,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case RoleTool:
			name := callNames[msg.ToolCallID]
			if name == "" {
				name = msg.ToolCallID
			}
			response := map[string]any{"result": msg.Content}
			if msg.IsError {
				response = map[string]any{"error": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     name,
						Response: response,
					},
				}},
			})
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.temperature)),
	}
	if p.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.maxTokens)
	}
	if system.Len() > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system.String()}},
		}
	}
	if len(tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return contents, cfg
}

// convertSchema maps a JSON Schema object to the genai schema type.
func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{Type: mapSchemaType(schema["type"])}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchema(prop)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchema(items)
	}
	switch required := schema["required"].(type) {
	case []string:
		out.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func mapSchemaType(raw any) genai.Type {
	t, _ := raw.(string)
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

func extractCalls(parts []*genai.Part) (string, []ToolCall) {
	var text strings.Builder
	var toolCalls []ToolCall
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = stableCallID(part.FunctionCall.Name, part.FunctionCall.Args)
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	return text.String(), toolCalls
}

// Generate performs a non-streaming request.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error) {
	contents, cfg := p.buildRequest(messages, tools)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", nil, 0, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil, 0, fmt.Errorf("gemini generate: empty response")
	}

	text, toolCalls := extractCalls(resp.Candidates[0].Content.Parts)

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return text, toolCalls, tokens, nil
}

// GenerateStreaming performs a streaming request. Gemini delivers tool
// calls whole, so no tool_call_delta chunks are produced.
func (p *GeminiProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	contents, cfg := p.buildRequest(messages, tools)

	ch := make(chan StreamChunk, 100)
	go func() {
		defer close(ch)

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var totalTokens int
		var pending []ToolCall

		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, cfg) {
			if err != nil {
				send(StreamChunk{Type: ChunkTypeError, Error: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
				totalTokens = int(resp.UsageMetadata.TotalTokenCount)
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}

			text, toolCalls := extractCalls(resp.Candidates[0].Content.Parts)
			if text != "" {
				if !send(StreamChunk{Type: ChunkTypeText, Text: text}) {
					return
				}
			}
			pending = append(pending, toolCalls...)
		}

		for i := range pending {
			if !send(StreamChunk{Type: ChunkTypeToolCall, ToolCall: &pending[i]}) {
				return
			}
		}

		send(StreamChunk{Type: ChunkTypeDone, Tokens: totalTokens})
	}()

	return ch, nil
}
