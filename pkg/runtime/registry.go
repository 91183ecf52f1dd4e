package runtime

import (
	"fmt"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/llms"
	"github.com/MagnusDot/Agent/pkg/registry"
	"github.com/MagnusDot/Agent/pkg/tools"
)

// AgentRegistry holds the agents the server exposes, keyed by agent id.
type AgentRegistry struct {
	*registry.BaseRegistry[*Agent]
}

func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		BaseRegistry: registry.NewBaseRegistry[*Agent](),
	}
}

// GetAgent returns the agent registered under key.
func (r *AgentRegistry) GetAgent(key string) (*Agent, error) {
	agent, exists := r.Get(key)
	if !exists {
		return nil, fmt.Errorf("agent %q not found", key)
	}
	return agent, nil
}

// Agents returns all registered agents ordered by key.
func (r *AgentRegistry) Agents() []*Agent {
	return r.List()
}

// NewRegistryFromConfig builds every configured agent. Agents share one
// memory store so a thread keeps its history across agents.
func NewRegistryFromConfig(cfg *config.Config, llmRegistry *llms.LLMRegistry, toolRegistry *tools.ToolRegistry, opts ...AgentOption) (*AgentRegistry, error) {
	r := NewAgentRegistry()

	store := NewMemoryStore()
	allOpts := append([]AgentOption{WithMemory(store)}, opts...)

	for key, agentCfg := range cfg.Agents {
		provider, err := llmRegistry.GetLLM(agentCfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", key, err)
		}

		agent, err := NewAgent(key, agentCfg, provider, toolRegistry, allOpts...)
		if err != nil {
			return nil, err
		}
		if err := r.Register(key, agent); err != nil {
			return nil, fmt.Errorf("agent %q: %w", key, err)
		}
	}

	return r, nil
}
