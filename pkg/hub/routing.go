package hub

import (
	"fmt"

	"github.com/sdlc-forge/maestro/pkg/config"
)

// Route is a resolved topic: the agent that answers it and the confidence
// threshold gating its answers.
type Route struct {
	AgentID   string
	Agent     *config.AgentConfig
	Threshold int
}

// Router resolves topics to agents using the startup configuration.
// Resolution order: explicit topic override, then any agent whose topics
// list contains the topic, then unknown_topic.
type Router struct {
	cfg *config.Config
}

// NewRouter creates a router over the loaded configuration.
func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

// Resolve maps a topic to its route.
func (r *Router) Resolve(topic string) (*Route, error) {
	if override, ok := r.cfg.TopicOverrides[topic]; ok {
		agent, err := r.cfg.AgentRegistry.Get(override.Agent)
		if err != nil {
			return nil, fmt.Errorf("topic %q override: %w", topic, err)
		}
		return &Route{
			AgentID:   override.Agent,
			Agent:     agent,
			Threshold: r.cfg.EffectiveThreshold(topic),
		}, nil
	}

	// Iterate in sorted id order so two agents claiming the same topic
	// resolve to the same one on every request and process.
	for _, id := range r.cfg.AgentRegistry.IDs() {
		agent, err := r.cfg.AgentRegistry.Get(id)
		if err != nil {
			continue
		}
		if agent.HandlesTopic(topic) {
			return &Route{
				AgentID:   id,
				Agent:     agent,
				Threshold: r.cfg.Hub.DefaultThreshold,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// Agent resolves an agent id directly (for /invoke/{agent}).
func (r *Router) Agent(agentID string) (*config.AgentConfig, error) {
	agent, err := r.cfg.AgentRegistry.Get(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return agent, nil
}

// KnownTopics lists every routable topic (for unknown_topic details).
func (r *Router) KnownTopics() []string {
	return r.cfg.KnownTopics()
}

// KnownAgents lists every registered agent id (for unknown_agent details).
func (r *Router) KnownAgents() []string {
	return r.cfg.AgentRegistry.IDs()
}
