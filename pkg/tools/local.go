package tools

import (
	"context"
	"fmt"
	"sync"
)

// LocalToolSource holds tools implemented in-process.
type LocalToolSource struct {
	name  string
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewLocalToolSource creates an empty local source.
func NewLocalToolSource(name string) *LocalToolSource {
	if name == "" {
		name = "local"
	}
	return &LocalToolSource{
		name:  name,
		tools: make(map[string]Tool),
	}
}

// NewBuiltinToolSource creates the local source holding the built-in
// tool set: the four calculator operations and the weather tool.
func NewBuiltinToolSource() *LocalToolSource {
	source := NewLocalToolSource("builtin")
	for _, tool := range CalculatorTools() {
		// Built-in names never collide.
		_ = source.RegisterTool(tool)
	}
	_ = source.RegisterTool(NewWeatherTool())
	return source
}

func (s *LocalToolSource) GetName() string {
	return s.name
}

func (s *LocalToolSource) GetType() string {
	return "local"
}

// RegisterTool adds a tool to the source.
func (s *LocalToolSource) RegisterTool(tool Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := tool.GetName()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := s.tools[name]; exists {
		return fmt.Errorf("tool %s already registered in source %s", name, s.name)
	}

	s.tools[name] = tool
	return nil
}

// DiscoverTools is a no-op for local sources; tools are registered
// directly.
func (s *LocalToolSource) DiscoverTools(ctx context.Context) error {
	return nil
}

func (s *LocalToolSource) ListTools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tools []ToolInfo
	for _, tool := range s.tools {
		info := tool.GetInfo()
		info.Source = s.name
		tools = append(tools, info)
	}
	return tools
}

func (s *LocalToolSource) GetTool(name string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tool, exists := s.tools[name]
	return tool, exists
}

func (s *LocalToolSource) Close() error {
	return nil
}
