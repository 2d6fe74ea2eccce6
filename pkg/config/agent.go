package config

import (
	"fmt"
	"sort"
	"sync"
)

// AgentConfig defines one expert worker endpoint.
type AgentConfig struct {
	// URL is the worker's base URL (POST /invoke, GET /health).
	URL string `yaml:"url"`

	// DefaultModel is passed through to the worker in request parameters.
	DefaultModel string `yaml:"default_model,omitempty"`

	// DefaultTimeout bounds each invoke call to this worker.
	DefaultTimeout Duration `yaml:"default_timeout,omitempty"`

	// Topics this agent answers when no topic override applies.
	Topics []string `yaml:"topics,omitempty"`
}

// HandlesTopic reports whether the agent declares the topic.
func (a *AgentConfig) HandlesTopic(topic string) bool {
	for _, t := range a.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// AgentRegistry stores agent configurations in memory with thread-safe access.
type AgentRegistry struct {
	agents map[string]*AgentConfig
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry.
func NewAgentRegistry(agents map[string]*AgentConfig) *AgentRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentConfig, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{agents: copied}
}

// Get retrieves an agent configuration by id.
func (r *AgentRegistry) Get(id string) (*AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return agent, nil
}

// GetAll returns a copy of all agent configurations.
func (r *AgentRegistry) GetAll() map[string]*AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentConfig, len(r.agents))
	for k, v := range r.agents {
		result[k] = v
	}
	return result
}

// Has checks if an agent exists in the registry.
func (r *AgentRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.agents[id]
	return exists
}

// IDs returns all registered agent ids, sorted.
func (r *AgentRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of agents in the registry.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
