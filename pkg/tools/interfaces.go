// Package tools provides the tool abstraction agents call during a
// run: built-in local tools plus tools discovered from MCP servers.
package tools

import (
	"context"
	"time"
)

// ToolInfo describes a tool to agents and model providers.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source names the tool source this tool came from.
	Source string `json:"source,omitempty"`
}

// ToolResult is the outcome of one tool execution. Error is set when
// the tool itself failed; infrastructure failures surface as Go errors
// from Execute instead.
type ToolResult struct {
	Success       bool          `json:"success"`
	Content       string        `json:"content,omitempty"`
	Error         string        `json:"error,omitempty"`
	ToolName      string        `json:"tool_name"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// NewToolResult builds a successful result.
func NewToolResult(toolName, content string) ToolResult {
	return ToolResult{
		Success:  true,
		Content:  content,
		ToolName: toolName,
	}
}

// NewToolResultError builds a failed result.
func NewToolResultError(toolName, errorMsg string) ToolResult {
	return ToolResult{
		Success:  false,
		Error:    errorMsg,
		ToolName: toolName,
	}
}

// Tool is one callable capability.
type Tool interface {
	GetInfo() ToolInfo

	GetName() string

	GetDescription() string

	Execute(ctx context.Context, args map[string]any) (ToolResult, error)
}

// ToolSource provides a set of tools, discovered lazily.
type ToolSource interface {
	GetName() string

	GetType() string

	DiscoverTools(ctx context.Context) error

	ListTools() []ToolInfo

	GetTool(name string) (Tool, bool)

	Close() error
}
