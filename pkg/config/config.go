// Copyright 2025 MagnusDot
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the service configuration tree and its YAML
// loading pipeline: parse, environment expansion, decode, defaults,
// validation, and file watching.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/MagnusDot/Agent/pkg/observability"
)

// DefaultAgentKey is the agent created by zero-config mode.
const DefaultAgentKey = "Agent-AI"

// Config is the root of the service configuration.
type Config struct {
	// Name identifies this deployment in logs and traces.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Deployment name"`

	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server"`

	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger"`

	// LLMs maps provider names to their configuration.
	LLMs map[string]*LLMConfig `yaml:"llms,omitempty" json:"llms,omitempty" jsonschema:"title=LLM Providers"`

	// Agents maps agent keys to their configuration.
	Agents map[string]*AgentConfig `yaml:"agents,omitempty" json:"agents,omitempty" jsonschema:"title=Agents"`

	// MCPServers maps names to MCP server launch configurations. Tools
	// discovered from these servers join the built-in tool set.
	MCPServers map[string]*MCPServerConfig `yaml:"mcp_servers,omitempty" json:"mcp_servers,omitempty" jsonschema:"title=MCP Servers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host to bind. Default: "0.0.0.0".
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,default=0.0.0.0"`

	// Port to listen on. Default: 8080.
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,minimum=1,maximum=65535,default=8080"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty" jsonschema:"title=Shutdown Timeout"`

	// Observability configures tracing and metrics.
	Observability *observability.Config `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability"`
}

// LoggerConfig configures process logging.
type LoggerConfig struct {
	// Level: debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// File path for log output. Empty means stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=File"`

	// Format: simple or verbose. Default: simple.
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,enum=simple,enum=verbose,default=simple"`
}

// LLMConfig configures one model provider.
type LLMConfig struct {
	// Type of provider: openai or gemini. The openai type serves any
	// compatible endpoint through base_url.
	Type string `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"title=Type,enum=openai,enum=gemini,default=openai"`

	// Model identifier, e.g. "gpt-4o-mini" or "gemini-2.0-flash".
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model"`

	// APIKey for authentication. Supports ${VAR} expansion. Local
	// endpoints that skip auth accept any placeholder value.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL"`

	// Temperature for sampling (0.0 - 2.0). Default: 0.7.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,minimum=0,maximum=2,default=0.7"`

	// MaxTokens limits response length. Default: 4096.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,minimum=1,default=4096"`

	// Timeout bounds a whole request, including streaming. Zero means
	// no client-side timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout"`
}

// AgentConfig configures one agent.
type AgentConfig struct {
	// Description shown in the agent list endpoint.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`

	// LLM names the provider entry this agent uses. Defaults to the only
	// configured provider when there is exactly one.
	LLM string `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM"`

	// Tools restricts which registered tools the agent may call.
	// Empty means all.
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools"`

	// Prompt overrides the built-in system prompt template.
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty" jsonschema:"title=Prompt"`

	// UserInfo is the mock identity rendered into the prompt.
	// Default: "Operator".
	UserInfo string `yaml:"user_info,omitempty" json:"user_info,omitempty" jsonschema:"title=User Info,default=Operator"`

	// Tags are attached to every token delta this agent streams.
	// The skip_stream tag keeps its tokens out of the SSE stream.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty" jsonschema:"title=Tags"`

	// RequireApproval lists tools whose invocation pauses the run with
	// an interrupt instead of executing.
	RequireApproval []string `yaml:"require_approval,omitempty" json:"require_approval,omitempty" jsonschema:"title=Require Approval"`

	// HistoryWindow is how many recent exchanges the prompt includes.
	// Default: 10.
	HistoryWindow int `yaml:"history_window,omitempty" json:"history_window,omitempty" jsonschema:"title=History Window,minimum=0,default=10"`

	// HistoryTokenBudget additionally trims the prompt history to a
	// token count using the model's encoding. 0 disables trimming.
	HistoryTokenBudget int `yaml:"history_token_budget,omitempty" json:"history_token_budget,omitempty" jsonschema:"title=History Token Budget,minimum=0"`

	// MaxIterations caps tool-calling rounds per run. Default: 10.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty" jsonschema:"title=Max Iterations,minimum=1,default=10"`
}

// MCPServerConfig configures one stdio-launched MCP server.
type MCPServerConfig struct {
	// Command to launch.
	Command string `yaml:"command" json:"command" jsonschema:"title=Command"`

	// Args passed to the command.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Args"`

	// Env entries (KEY=VALUE) added to the server's environment.
	Env []string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"title=Env"`

	// Tools filters which discovered tools are registered. Empty means all.
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools"`
}

// SetDefaults applies default values across the tree.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "agent"
	}

	c.Server.SetDefaults()
	c.Logger.SetDefaults()

	for _, llm := range c.LLMs {
		llm.SetDefaults()
	}

	var onlyLLM string
	if len(c.LLMs) == 1 {
		for name := range c.LLMs {
			onlyLLM = name
		}
	}
	for _, agent := range c.Agents {
		agent.SetDefaults()
		if agent.LLM == "" {
			agent.LLM = onlyLLM
		}
	}
}

// Validate checks the whole tree.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if len(c.LLMs) == 0 {
		return fmt.Errorf("at least one llm provider must be defined")
	}
	for name, llm := range c.LLMs {
		if llm == nil {
			return fmt.Errorf("llm %q: empty configuration", name)
		}
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm %q: %w", name, err)
		}
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be defined")
	}
	for key, agent := range c.Agents {
		if agent == nil {
			return fmt.Errorf("agent %q: empty configuration", key)
		}
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", key, err)
		}
		if _, ok := c.LLMs[agent.LLM]; !ok {
			return fmt.Errorf("agent %q: llm %q is not defined", key, agent.LLM)
		}
	}

	for name, mcp := range c.MCPServers {
		if mcp == nil || mcp.Command == "" {
			return fmt.Errorf("mcp server %q: command is required", name)
		}
	}

	return nil
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.Observability != nil {
		c.Observability.SetDefaults()
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("observability: %w", err)
		}
	}
	return nil
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = detectTypeFromEnv()
	}
	if c.Model == "" {
		switch c.Type {
		case "gemini":
			c.Model = "gemini-2.0-flash"
		default:
			c.Model = "gpt-4o-mini"
		}
	}
	if c.APIKey == "" {
		c.APIKey = ProviderAPIKey(c.Type)
	}
	if c.Temperature == nil {
		temperature := 0.7
		c.Temperature = &temperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Type {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid type %q (valid: openai, gemini)", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	// Local OpenAI-compatible endpoints accept any key, so a key is only
	// required when talking to a hosted API.
	if c.APIKey == "" && c.BaseURL == "" {
		return fmt.Errorf("api_key is required for type %q", c.Type)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

func (c *AgentConfig) SetDefaults() {
	if c.Description == "" {
		c.Description = "An AI agent that can help users"
	}
	if c.UserInfo == "" {
		c.UserInfo = "Operator"
	}
	if c.HistoryWindow == 0 {
		c.HistoryWindow = 10
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
}

func (c *AgentConfig) Validate() error {
	if c.LLM == "" {
		return fmt.Errorf("llm is required")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window cannot be negative")
	}
	if c.HistoryTokenBudget < 0 {
		return fmt.Errorf("history_token_budget cannot be negative")
	}
	return nil
}

// detectTypeFromEnv picks a provider type from available API keys.
func detectTypeFromEnv() string {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return "gemini"
	}
	return "openai"
}

// ZeroConfig builds a runnable configuration without a config file. When
// no endpoint or key is given it inspects the environment: a Gemini or
// OpenAI API key selects that provider, otherwise it falls back to a
// local LM Studio style OpenAI-compatible server.
func ZeroConfig(baseURL, model, apiKey string) *Config {
	providerType := "openai"
	if baseURL == "" && apiKey == "" {
		providerType = detectTypeFromEnv()
		apiKey = ProviderAPIKey(providerType)
	}

	switch {
	case providerType == "gemini":
		if model == "" {
			model = "gemini-2.0-flash"
		}
	case apiKey == "":
		if baseURL == "" {
			baseURL = "http://localhost:1234/v1"
		}
		if model == "" {
			model = "dolphin3.0-llama3.1-8b"
		}
		apiKey = "not-needed"
	default:
		if model == "" {
			model = "gpt-4o-mini"
		}
	}
	temperature := 0.5

	cfg := &Config{
		LLMs: map[string]*LLMConfig{
			"local": {
				Type:        providerType,
				Model:       model,
				APIKey:      apiKey,
				BaseURL:     baseURL,
				Temperature: &temperature,
			},
		},
		Agents: map[string]*AgentConfig{
			DefaultAgentKey: {
				Description: "An AI agent that can help users",
				LLM:         "local",
			},
		},
	}
	cfg.SetDefaults()
	return cfg
}
