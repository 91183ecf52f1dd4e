package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MagnusDot/Agent/pkg/config"
)

func TestToolRegistry_RegisterSource(t *testing.T) {
	reg := NewToolRegistry()

	if err := reg.RegisterSource(context.Background(), NewBuiltinToolSource()); err != nil {
		t.Fatalf("RegisterSource() error = %v", err)
	}

	tool, err := reg.GetTool("get_weather")
	if err != nil {
		t.Fatalf("GetTool() error = %v", err)
	}
	if tool.GetName() != "get_weather" {
		t.Errorf("GetTool() name = %q, want %q", tool.GetName(), "get_weather")
	}
}

func TestToolRegistry_GetToolNotFound(t *testing.T) {
	reg := NewToolRegistry()

	_, err := reg.GetTool("nonexistent")
	if err == nil {
		t.Fatal("GetTool() found a tool in an empty registry")
	}

	var regErr *ToolRegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("GetTool() error type = %T, want *ToolRegistryError", err)
	}
	if !strings.Contains(regErr.Error(), "nonexistent") {
		t.Errorf("error = %q, want it to name the tool", regErr.Error())
	}
}

func TestToolRegistry_ListToolsSorted(t *testing.T) {
	reg := NewToolRegistry()
	if err := reg.RegisterSource(context.Background(), NewBuiltinToolSource()); err != nil {
		t.Fatalf("RegisterSource() error = %v", err)
	}

	tools := reg.ListTools()
	want := []string{"add", "divide", "get_weather", "multiply", "subtract"}
	if len(tools) != len(want) {
		t.Fatalf("ListTools() returned %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("ListTools()[%d] = %q, want %q", i, tools[i].Name, name)
		}
		if tools[i].Source != "builtin" {
			t.Errorf("ListTools()[%d] source = %q, want %q", i, tools[i].Source, "builtin")
		}
	}
}

func TestToolRegistry_ExecuteTool(t *testing.T) {
	reg := NewToolRegistry()
	if err := reg.RegisterSource(context.Background(), NewBuiltinToolSource()); err != nil {
		t.Fatalf("RegisterSource() error = %v", err)
	}

	result, err := reg.ExecuteTool(context.Background(), "add", map[string]any{"first": 2, "second": 2})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("ExecuteTool() failed: %s", result.Error)
	}
	if result.Content != "4" {
		t.Errorf("ExecuteTool() content = %q, want %q", result.Content, "4")
	}
	if result.ExecutionTime <= 0 {
		t.Error("ExecuteTool() did not stamp execution time")
	}
}

func TestToolRegistry_ExecuteToolFailure(t *testing.T) {
	reg := NewToolRegistry()
	if err := reg.RegisterSource(context.Background(), NewBuiltinToolSource()); err != nil {
		t.Fatalf("RegisterSource() error = %v", err)
	}

	result, err := reg.ExecuteTool(context.Background(), "divide", map[string]any{"first": 1, "second": 0})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}
	if result.Success {
		t.Fatal("ExecuteTool() succeeded dividing by zero")
	}
	if !strings.Contains(result.Error, "division by zero") {
		t.Errorf("ExecuteTool() error = %q, want division by zero", result.Error)
	}
}

func TestToolRegistry_ExecuteToolUnknown(t *testing.T) {
	reg := NewToolRegistry()

	result, err := reg.ExecuteTool(context.Background(), "ghost", nil)
	if err == nil {
		t.Fatal("ExecuteTool() succeeded for unknown tool")
	}
	if result.Success {
		t.Error("ExecuteTool() result marked success for unknown tool")
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.ZeroConfig("", "", "")

	reg, err := NewRegistryFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}
	defer reg.Close()

	if got := len(reg.ListTools()); got != 5 {
		t.Errorf("registry holds %d tools, want 5 builtins", got)
	}
}

func TestNewRegistryFromConfig_BadMCPServer(t *testing.T) {
	cfg := config.ZeroConfig("", "", "")
	cfg.MCPServers = map[string]*config.MCPServerConfig{
		"broken": {Command: ""},
	}

	if _, err := NewRegistryFromConfig(context.Background(), cfg); err == nil {
		t.Fatal("NewRegistryFromConfig() accepted MCP server without command")
	}
}
