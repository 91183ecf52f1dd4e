package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/observability"
	"github.com/MagnusDot/Agent/pkg/registry"
)

// ToolEntry associates a registered tool with its source.
type ToolEntry struct {
	Tool       Tool
	Source     ToolSource
	SourceType string
	Name       string
}

// ToolRegistryError is a structured error for registry operations.
type ToolRegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ToolRegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *ToolRegistryError) Unwrap() error {
	return e.Err
}

func NewToolRegistryError(component, action, message string, err error) *ToolRegistryError {
	return &ToolRegistryError{
		Component: component,
		Action:    action,
		Message:   message,
		Err:       err,
	}
}

// ToolRegistry aggregates tools from all sources and is the single
// execution point, so tracing and metrics happen here.
type ToolRegistry struct {
	*registry.BaseRegistry[ToolEntry]

	sources []ToolSource
	tracer  trace.Tracer
	metrics observability.Metrics
}

// ToolRegistryOption configures a ToolRegistry.
type ToolRegistryOption func(*ToolRegistry)

// WithObservability attaches a tracer and metrics recorder to tool
// execution.
func WithObservability(tracer trace.Tracer, metrics observability.Metrics) ToolRegistryOption {
	return func(r *ToolRegistry) {
		r.tracer = tracer
		r.metrics = metrics
	}
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry(opts ...ToolRegistryOption) *ToolRegistry {
	r := &ToolRegistry{
		BaseRegistry: registry.NewBaseRegistry[ToolEntry](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRegistryFromConfig builds a registry holding the built-in tools
// plus one MCP source per configured server.
func NewRegistryFromConfig(ctx context.Context, cfg *config.Config, opts ...ToolRegistryOption) (*ToolRegistry, error) {
	r := NewToolRegistry(opts...)

	if err := r.RegisterSource(ctx, NewBuiltinToolSource()); err != nil {
		return nil, fmt.Errorf("failed to register builtin tools: %w", err)
	}

	for name, serverCfg := range cfg.MCPServers {
		source, err := NewMCPToolSource(name, serverCfg)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterSource(ctx, source); err != nil {
			return nil, fmt.Errorf("failed to register mcp source %s: %w", name, err)
		}
	}

	return r, nil
}

// RegisterSource discovers a source's tools and registers them.
func (r *ToolRegistry) RegisterSource(ctx context.Context, source ToolSource) error {
	name := source.GetName()
	if name == "" {
		return NewToolRegistryError("ToolRegistry", "RegisterSource", "source name cannot be empty", nil)
	}

	if err := source.DiscoverTools(ctx); err != nil {
		return NewToolRegistryError("ToolRegistry", "RegisterSource",
			fmt.Sprintf("failed to discover tools from source %s", name), err)
	}

	for _, info := range source.ListTools() {
		tool, exists := source.GetTool(info.Name)
		if !exists {
			continue
		}

		entry := ToolEntry{
			Tool:       tool,
			Source:     source,
			SourceType: source.GetType(),
			Name:       info.Name,
		}
		if err := r.Register(info.Name, entry); err != nil {
			return NewToolRegistryError("ToolRegistry", "RegisterSource",
				fmt.Sprintf("failed to register tool %s", info.Name), err)
		}
	}

	r.sources = append(r.sources, source)
	return nil
}

// GetTool returns a tool by name.
func (r *ToolRegistry) GetTool(name string) (Tool, error) {
	entry, exists := r.Get(name)
	if !exists {
		return nil, NewToolRegistryError("ToolRegistry", "GetTool",
			fmt.Sprintf("tool %s not found", name), nil)
	}
	return entry.Tool, nil
}

// ListTools returns all registered tools sorted by name.
func (r *ToolRegistry) ListTools() []ToolInfo {
	var tools []ToolInfo
	for _, entry := range r.List() {
		info := entry.Tool.GetInfo()
		info.Source = entry.Source.GetName()
		tools = append(tools, info)
	}

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// ExecuteTool runs a tool by name, recording a span and metrics.
func (r *ToolRegistry) ExecuteTool(ctx context.Context, toolName string, args map[string]any) (ToolResult, error) {
	startTime := time.Now()

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, observability.SpanToolExecution,
			trace.WithAttributes(
				attribute.String(observability.AttrToolName, toolName),
			),
		)
		defer span.End()
	}

	tool, err := r.GetTool(toolName)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "tool not found")
		}
		if r.metrics != nil {
			r.metrics.RecordToolExecution(ctx, toolName, time.Since(startTime), err)
		}
		return NewToolResultError(toolName, err.Error()), err
	}

	result, execErr := tool.Execute(ctx, args)
	duration := time.Since(startTime)
	result.ExecutionTime = duration

	var recordErr error
	switch {
	case execErr != nil:
		recordErr = execErr
	case !result.Success:
		recordErr = fmt.Errorf("%s", result.Error)
	}

	if span != nil {
		if recordErr != nil {
			span.RecordError(recordErr)
			span.SetStatus(codes.Error, recordErr.Error())
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		span.SetAttributes(
			attribute.Bool("tool.success", result.Success),
			attribute.Int64("tool.duration_ms", duration.Milliseconds()),
		)
	}
	if r.metrics != nil {
		r.metrics.RecordToolExecution(ctx, toolName, duration, recordErr)
	}

	return result, execErr
}

// Close shuts down all sources.
func (r *ToolRegistry) Close() error {
	var firstErr error
	for _, source := range r.sources {
		if err := source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
