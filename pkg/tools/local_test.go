package tools

import (
	"context"
	"strings"
	"testing"
)

func TestNewLocalToolSource(t *testing.T) {
	tests := []struct {
		name       string
		sourceName string
		wantName   string
	}{
		{
			name:       "custom name",
			sourceName: "my-tools",
			wantName:   "my-tools",
		},
		{
			name:       "empty name defaults",
			sourceName: "",
			wantName:   "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewLocalToolSource(tt.sourceName)
			if source.GetName() != tt.wantName {
				t.Errorf("GetName() = %q, want %q", source.GetName(), tt.wantName)
			}
			if source.GetType() != "local" {
				t.Errorf("GetType() = %q, want %q", source.GetType(), "local")
			}
		})
	}
}

func TestLocalToolSource_RegisterTool(t *testing.T) {
	source := NewLocalToolSource("test")

	if err := source.RegisterTool(NewAddTool()); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}

	err := source.RegisterTool(NewAddTool())
	if err == nil {
		t.Fatal("RegisterTool() accepted a duplicate")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("RegisterTool() error = %v, want duplicate message", err)
	}

	tool, exists := source.GetTool("add")
	if !exists {
		t.Fatal("GetTool() did not find registered tool")
	}
	if tool.GetName() != "add" {
		t.Errorf("GetTool() name = %q, want %q", tool.GetName(), "add")
	}
	if _, exists := source.GetTool("missing"); exists {
		t.Error("GetTool() found unregistered tool")
	}
}

func TestLocalToolSource_ListTools(t *testing.T) {
	source := NewLocalToolSource("unit")
	if err := source.RegisterTool(NewWeatherTool()); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}

	tools := source.ListTools()
	if len(tools) != 1 {
		t.Fatalf("ListTools() returned %d tools, want 1", len(tools))
	}
	if tools[0].Source != "unit" {
		t.Errorf("ListTools() source = %q, want %q", tools[0].Source, "unit")
	}
}

func TestNewBuiltinToolSource(t *testing.T) {
	source := NewBuiltinToolSource()

	if source.GetName() != "builtin" {
		t.Errorf("GetName() = %q, want %q", source.GetName(), "builtin")
	}
	if err := source.DiscoverTools(context.Background()); err != nil {
		t.Fatalf("DiscoverTools() error = %v", err)
	}

	for _, name := range []string{"add", "subtract", "multiply", "divide", "get_weather"} {
		if _, exists := source.GetTool(name); !exists {
			t.Errorf("builtin source missing tool %q", name)
		}
	}

	if err := source.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
