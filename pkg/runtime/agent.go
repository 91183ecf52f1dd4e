package runtime

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/llms"
	"github.com/MagnusDot/Agent/pkg/observability"
	"github.com/MagnusDot/Agent/pkg/tools"
)

// Runner is the execution surface the HTTP layer depends on.
type Runner interface {
	// Invoke runs to completion and returns the final state.
	Invoke(ctx context.Context, input RunInput) (*FinalEvent, error)

	// Stream runs asynchronously. The returned channel closes when the
	// run finishes, fails, or the context is cancelled.
	Stream(ctx context.Context, input RunInput) (<-chan Event, error)
}

const (
	defaultUserInfo      = "Operator"
	defaultHistoryWindow = 10
	defaultMaxIterations = 10
)

// Agent binds an LLM provider, a tool set and per-thread memory into a
// ReAct loop: ask the model, execute requested tools, feed results back,
// repeat until a plain answer or the iteration cap.
type Agent struct {
	key             string
	description     string
	provider        llms.LLMProvider
	tools           *tools.ToolRegistry
	toolDefs        []llms.ToolDefinition
	memory          *MemoryStore
	promptTmpl      *template.Template
	userInfo        string
	tags            []string
	requireApproval map[string]bool
	historyWindow   int
	historyBudget   int
	maxIterations   int
	counter         *TokenCounter
	now             func() time.Time
	tracer          trace.Tracer
	metrics         observability.Metrics
}

var _ Runner = (*Agent)(nil)

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithObservability attaches a tracer and metrics recorder to runs.
func WithObservability(tracer trace.Tracer, metrics observability.Metrics) AgentOption {
	return func(a *Agent) {
		a.tracer = tracer
		a.metrics = metrics
	}
}

// WithMemory shares a conversation store between agents.
func WithMemory(store *MemoryStore) AgentOption {
	return func(a *Agent) {
		if store != nil {
			a.memory = store
		}
	}
}

// WithClock overrides the time source used for prompt dates.
func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAgent builds an agent from its configuration. The tool registry may
// be nil for a pure-chat agent.
func NewAgent(key string, cfg *config.AgentConfig, provider llms.LLMProvider, toolRegistry *tools.ToolRegistry, opts ...AgentOption) (*Agent, error) {
	if key == "" {
		return nil, fmt.Errorf("agent key cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("agent %q: config cannot be nil", key)
	}
	if provider == nil {
		return nil, fmt.Errorf("agent %q: llm provider cannot be nil", key)
	}

	tmpl, err := parsePromptTemplate(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", key, err)
	}

	toolDefs, err := resolveToolDefs(toolRegistry, cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", key, err)
	}

	a := &Agent{
		key:             key,
		description:     cfg.Description,
		provider:        provider,
		tools:           toolRegistry,
		toolDefs:        toolDefs,
		memory:          NewMemoryStore(),
		promptTmpl:      tmpl,
		userInfo:        cfg.UserInfo,
		tags:            append([]string(nil), cfg.Tags...),
		requireApproval: make(map[string]bool, len(cfg.RequireApproval)),
		historyWindow:   cfg.HistoryWindow,
		historyBudget:   cfg.HistoryTokenBudget,
		maxIterations:   cfg.MaxIterations,
		now:             time.Now,
	}
	for _, name := range cfg.RequireApproval {
		a.requireApproval[name] = true
	}
	if a.userInfo == "" {
		a.userInfo = defaultUserInfo
	}
	if a.historyWindow <= 0 {
		a.historyWindow = defaultHistoryWindow
	}
	if a.maxIterations <= 0 {
		a.maxIterations = defaultMaxIterations
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.historyBudget > 0 {
		counter, err := NewTokenCounter(provider.GetModelName())
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", key, err)
		}
		a.counter = counter
	}

	return a, nil
}

// resolveToolDefs maps the configured tool subset to definitions the
// model understands. An empty subset advertises every registered tool.
func resolveToolDefs(registry *tools.ToolRegistry, names []string) ([]llms.ToolDefinition, error) {
	if registry == nil {
		if len(names) > 0 {
			return nil, fmt.Errorf("tools configured but no tool registry available")
		}
		return nil, nil
	}

	infos := registry.ListTools()
	byName := make(map[string]tools.ToolInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	selected := infos
	if len(names) > 0 {
		selected = selected[:0]
		for _, name := range names {
			info, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("tool %q is not registered", name)
			}
			selected = append(selected, info)
		}
	}

	defs := make([]llms.ToolDefinition, 0, len(selected))
	for _, info := range selected {
		defs = append(defs, llms.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.Parameters,
		})
	}
	return defs, nil
}

func (a *Agent) Key() string         { return a.key }
func (a *Agent) Description() string { return a.description }

// Memory exposes the agent's conversation store.
func (a *Agent) Memory() *MemoryStore { return a.memory }

// recentHistory returns the thread history trimmed to the configured
// window and, when enabled, the token budget.
func (a *Agent) recentHistory(threadID string) []llms.Message {
	history := a.memory.History(threadID)
	if a.historyWindow > 0 && len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}
	if a.counter != nil && a.historyBudget > 0 {
		history = a.counter.FitWithinLimit(history, a.historyBudget)
	}
	return history
}

func approvalPrompt(call llms.ToolCall) string {
	return fmt.Sprintf("Tool %q requires approval before it can run. Send a new message to approve or reject.", call.Name)
}

// startRunSpan opens the run span when tracing is wired.
func (a *Agent) startRunSpan(ctx context.Context, input RunInput) (context.Context, trace.Span) {
	if a.tracer == nil {
		return ctx, nil
	}
	return a.tracer.Start(ctx, observability.SpanAgentRun,
		trace.WithAttributes(
			attribute.String(observability.AttrAgentKey, a.key),
			attribute.String(observability.AttrThreadID, input.ThreadID),
			attribute.String(observability.AttrRunID, input.RunID),
		),
	)
}

func (a *Agent) finishRun(ctx context.Context, span trace.Span, start time.Time, tokens int, err error) {
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
	if a.metrics != nil {
		a.metrics.RecordAgentRun(ctx, a.key, time.Since(start), tokens, err)
	}
}

// generate calls the provider once, recording the LLM span and metrics.
func (a *Agent) generate(ctx context.Context, messages []llms.Message) (string, []llms.ToolCall, int, error) {
	start := time.Now()

	var span trace.Span
	if a.tracer != nil {
		ctx, span = a.tracer.Start(ctx, observability.SpanLLMCall,
			trace.WithAttributes(attribute.String(observability.AttrLLMModel, a.provider.GetModelName())),
		)
		defer span.End()
	}

	text, calls, tokens, err := a.provider.Generate(ctx, messages, a.toolDefs)

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	if a.metrics != nil {
		a.metrics.RecordLLMCall(ctx, a.provider.GetModelName(), time.Since(start), tokens, err)
	}

	return text, calls, tokens, err
}

// executeTool runs one tool call and renders the outcome as a tool
// message. Failures become error-flagged messages, never run aborts.
func (a *Agent) executeTool(ctx context.Context, call llms.ToolCall) llms.Message {
	if a.tools == nil {
		return llms.NewToolMessage(call.ID, fmt.Sprintf("tool %q is not available", call.Name), true)
	}

	result, err := a.tools.ExecuteTool(ctx, call.Name, call.Args)
	if err != nil && result.Error == "" {
		return llms.NewToolMessage(call.ID, err.Error(), true)
	}
	if !result.Success {
		return llms.NewToolMessage(call.ID, result.Error, true)
	}
	return llms.NewToolMessage(call.ID, result.Content, false)
}

// Invoke runs the loop to completion without streaming.
func (a *Agent) Invoke(ctx context.Context, input RunInput) (*FinalEvent, error) {
	start := time.Now()
	ctx, span := a.startRunSpan(ctx, input)

	system, err := a.renderSystemPrompt(input.UserInfo, input.Date, a.recentHistory(input.ThreadID))
	if err != nil {
		a.finishRun(ctx, span, start, 0, err)
		return nil, err
	}

	userMsg := llms.NewUserMessage(input.Message)
	messages := []llms.Message{llms.NewSystemMessage(system), userMsg}

	var totalTokens int
	for i := 0; i < a.maxIterations; i++ {
		text, calls, tokens, err := a.generate(ctx, messages)
		totalTokens += tokens
		if err != nil {
			a.finishRun(ctx, span, start, totalTokens, err)
			return nil, fmt.Errorf("agent %q: %w", a.key, err)
		}

		if len(calls) == 0 {
			final := llms.NewAssistantMessage(text)
			messages = append(messages, final)
			a.memory.Append(input.ThreadID, userMsg, final)
			a.finishRun(ctx, span, start, totalTokens, nil)
			// The system prompt is the agent's own scaffolding, not
			// conversation state.
			return &FinalEvent{Type: FinalTypeValues, Messages: messages[1:]}, nil
		}

		messages = append(messages, llms.NewAssistantMessage(text, calls...))

		for _, call := range calls {
			if a.requireApproval[call.Name] {
				a.memory.Append(input.ThreadID, userMsg)
				a.finishRun(ctx, span, start, totalTokens, nil)
				return &FinalEvent{
					Type:      FinalTypeInterrupt,
					Interrupt: &Interrupt{Value: approvalPrompt(call)},
				}, nil
			}
			messages = append(messages, a.executeTool(ctx, call))
		}
	}

	err = fmt.Errorf("agent %q: no final response after %d iterations", a.key, a.maxIterations)
	a.finishRun(ctx, span, start, totalTokens, err)
	return nil, err
}

// streamEventWriter lets tools push custom events into the run's stream.
type streamEventWriter struct {
	send func(Event) bool
}

func (w *streamEventWriter) Write(ev tools.StreamEvent) {
	w.send(customEvent(&CustomEvent{Type: ev.Type, Data: ev.Data}))
}

// Stream runs the loop asynchronously, emitting events as they happen.
func (a *Agent) Stream(ctx context.Context, input RunInput) (<-chan Event, error) {
	system, err := a.renderSystemPrompt(input.UserInfo, input.Date, a.recentHistory(input.ThreadID))
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 64)
	go a.streamRun(ctx, input, system, events)
	return events, nil
}

func (a *Agent) streamRun(ctx context.Context, input RunInput, system string, events chan<- Event) {
	defer close(events)

	start := time.Now()
	ctx, span := a.startRunSpan(ctx, input)

	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	ctx = tools.WithEventWriter(ctx, &streamEventWriter{send: send})

	tokens, err := a.streamLoop(ctx, input, system, send)
	a.finishRun(ctx, span, start, tokens, err)
}

func (a *Agent) streamLoop(ctx context.Context, input RunInput, system string, send func(Event) bool) (int, error) {
	userMsg := llms.NewUserMessage(input.Message)

	// The user message is echoed on the updates channel the way every
	// completed message is; the translation layer filters it out.
	if !send(updateEvent(&Update{Messages: []llms.Message{userMsg}})) {
		return 0, ctx.Err()
	}

	messages := []llms.Message{llms.NewSystemMessage(system), userMsg}

	var totalTokens int
	for i := 0; i < a.maxIterations; i++ {
		chunks, err := a.provider.GenerateStreaming(ctx, messages, a.toolDefs)
		if err != nil {
			err = fmt.Errorf("agent %q: %w", a.key, err)
			send(errorEvent(err))
			return totalTokens, err
		}

		var text strings.Builder
		var calls []llms.ToolCall

		for chunk := range chunks {
			switch chunk.Type {
			case llms.ChunkTypeText:
				text.WriteString(chunk.Text)
				delta := &TokenDelta{
					Parts: []ContentPart{{Type: PartTypeText, Text: chunk.Text}},
					Tags:  a.tags,
				}
				if !send(tokenEvent(delta)) {
					return totalTokens, ctx.Err()
				}
			case llms.ChunkTypeToolCallDelta:
				delta := &TokenDelta{
					Parts: []ContentPart{{Type: PartTypeToolCallChunk, Text: chunk.Text}},
					Tags:  a.tags,
				}
				if !send(tokenEvent(delta)) {
					return totalTokens, ctx.Err()
				}
			case llms.ChunkTypeToolCall:
				if chunk.ToolCall != nil {
					calls = append(calls, *chunk.ToolCall)
				}
			case llms.ChunkTypeDone:
				totalTokens += chunk.Tokens
			case llms.ChunkTypeError:
				err := fmt.Errorf("agent %q: %w", a.key, chunk.Error)
				send(errorEvent(err))
				return totalTokens, err
			}
		}

		if ctx.Err() != nil {
			return totalTokens, ctx.Err()
		}

		if len(calls) == 0 {
			final := llms.NewAssistantMessage(text.String())
			messages = append(messages, final)
			send(updateEvent(&Update{Messages: []llms.Message{final}}))
			a.memory.Append(input.ThreadID, userMsg, final)
			return totalTokens, nil
		}

		assistant := llms.NewAssistantMessage(text.String(), calls...)
		messages = append(messages, assistant)
		if !send(updateEvent(&Update{Messages: []llms.Message{assistant}})) {
			return totalTokens, ctx.Err()
		}

		for _, call := range calls {
			if a.requireApproval[call.Name] {
				send(updateEvent(&Update{Interrupt: &Interrupt{Value: approvalPrompt(call)}}))
				a.memory.Append(input.ThreadID, userMsg)
				return totalTokens, nil
			}

			toolMsg := a.executeTool(ctx, call)
			messages = append(messages, toolMsg)
			if !send(updateEvent(&Update{Messages: []llms.Message{toolMsg}})) {
				return totalTokens, ctx.Err()
			}
		}
	}

	err := fmt.Errorf("agent %q: no final response after %d iterations", a.key, a.maxIterations)
	send(errorEvent(err))
	return totalTokens, err
}
