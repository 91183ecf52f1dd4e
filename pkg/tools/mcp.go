package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	agent "github.com/MagnusDot/Agent"
	"github.com/MagnusDot/Agent/pkg/config"
)

const mcpProtocolVersion = "2024-11-05"

// MCPToolSource exposes tools from a stdio-launched MCP server. The
// subprocess is started lazily on first discovery.
type MCPToolSource struct {
	name string
	cfg  *config.MCPServerConfig

	mu        sync.Mutex
	client    *client.Client
	tools     map[string]Tool
	connected bool
	filterSet map[string]bool
}

// NewMCPToolSource creates a source for one configured MCP server.
func NewMCPToolSource(name string, cfg *config.MCPServerConfig) (*MCPToolSource, error) {
	if cfg == nil || cfg.Command == "" {
		return nil, fmt.Errorf("mcp source %s: command is required", name)
	}

	var filterSet map[string]bool
	if len(cfg.Tools) > 0 {
		filterSet = make(map[string]bool, len(cfg.Tools))
		for _, toolName := range cfg.Tools {
			filterSet[toolName] = true
		}
	}

	return &MCPToolSource{
		name:      name,
		cfg:       cfg,
		tools:     make(map[string]Tool),
		filterSet: filterSet,
	}, nil
}

func (s *MCPToolSource) GetName() string {
	return s.name
}

func (s *MCPToolSource) GetType() string {
	return "mcp"
}

// DiscoverTools launches the server process if needed and lists its
// tools.
func (s *MCPToolSource) DiscoverTools(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	return s.connect(ctx)
}

func (s *MCPToolSource) connect(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(s.cfg.Command, s.cfg.Env, s.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agent",
		Version: agent.Version,
	}
	initReq.Params.ProtocolVersion = mcpProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make(map[string]Tool)
	for _, remote := range listResp.Tools {
		if s.filterSet != nil && !s.filterSet[remote.Name] {
			continue
		}
		tools[remote.Name] = &mcpTool{
			source: s,
			info: ToolInfo{
				Name:        remote.Name,
				Description: remote.Description,
				Parameters:  convertMCPSchema(remote.InputSchema),
				Source:      s.name,
			},
		}
	}

	s.client = mcpClient
	s.tools = tools
	s.connected = true

	slog.Info("Connected to MCP server",
		"name", s.name,
		"command", s.cfg.Command,
		"tools", len(tools),
	)

	return nil
}

func (s *MCPToolSource) ListTools() []ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []ToolInfo
	for _, tool := range s.tools {
		infos = append(infos, tool.GetInfo())
	}
	return infos
}

func (s *MCPToolSource) GetTool(name string) (Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool, exists := s.tools[name]
	return tool, exists
}

// Close shuts down the server subprocess.
func (s *MCPToolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.connected = false
	s.tools = make(map[string]Tool)
	return err
}

func (s *MCPToolSource) clientRef() *client.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// mcpTool adapts one remote tool to the Tool interface.
type mcpTool struct {
	source *MCPToolSource
	info   ToolInfo
}

func (t *mcpTool) GetInfo() ToolInfo {
	return t.info
}

func (t *mcpTool) GetName() string {
	return t.info.Name
}

func (t *mcpTool) GetDescription() string {
	return t.info.Description
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	mcpClient := t.source.clientRef()
	if mcpClient == nil {
		return ToolResult{}, fmt.Errorf("mcp source %s is not connected", t.source.name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.info.Name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("mcp call failed: %w", err)
	}

	text := textFromMCPContent(resp.Content)
	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}
		return NewToolResultError(t.info.Name, text), nil
	}
	return NewToolResult(t.info.Name, text), nil
}

// textFromMCPContent joins the text parts of an MCP response.
func textFromMCPContent(contents []mcp.Content) string {
	var texts []string
	for _, content := range contents {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// convertMCPSchema converts an MCP input schema to a plain map through
// a JSON round-trip.
func convertMCPSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
