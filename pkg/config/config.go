// Package config provides configuration management for the Maestro services,
// including the agent registry, topic routing overrides, workflow mappings,
// and hub/orchestrator runtime settings.
package config

import (
	"sort"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// Config is the fully resolved, validated configuration. Immutable after
// Initialize returns; restart to reconfigure.
type Config struct {
	configPath string

	AgentRegistry *AgentRegistry

	// TopicOverrides maps a topic to an explicit agent and threshold,
	// taking precedence over agents' own topic lists.
	TopicOverrides map[string]*TopicOverride

	Workflows    *WorkflowsConfig
	Hub          *HubConfig
	Orchestrator *OrchestratorConfig
	Forge        *ForgeConfig
	Slack        *SlackConfig
}

// TopicOverride pins a topic to an agent with its own confidence threshold.
type TopicOverride struct {
	Agent               string `yaml:"agent"`
	ConfidenceThreshold int    `yaml:"confidence_threshold"`
}

// WorkflowsConfig maps workflow types to agents and phase sequences.
type WorkflowsConfig struct {
	// DefaultAgent handles any workflow type without an explicit mapping.
	DefaultAgent string `yaml:"default_agent"`

	// AgentMapping overrides the default agent per workflow type.
	AgentMapping map[models.WorkflowType]string `yaml:"agent_mapping"`

	// Phases lists the phase names each workflow type runs through. A type
	// without an entry runs a single phase named after the type.
	Phases map[models.WorkflowType][]string `yaml:"phases"`
}

// AgentFor resolves the agent id handling the given workflow type.
func (w *WorkflowsConfig) AgentFor(t models.WorkflowType) string {
	if agent, ok := w.AgentMapping[t]; ok && agent != "" {
		return agent
	}
	return w.DefaultAgent
}

// PhasesFor resolves the phase sequence for the given workflow type.
func (w *WorkflowsConfig) PhasesFor(t models.WorkflowType) []string {
	if phases, ok := w.Phases[t]; ok && len(phases) > 0 {
		return phases
	}
	return []string{string(t)}
}

// HubConfig contains Agent Hub runtime settings.
type HubConfig struct {
	// DefaultThreshold gates answers for topics without an override.
	DefaultThreshold int `yaml:"default_threshold"`

	// SessionTTL bounds how long a session accepts new messages.
	SessionTTL Duration `yaml:"session_ttl"`

	// EscalationTTL bounds how long an escalation awaits a human.
	EscalationTTL Duration `yaml:"escalation_ttl"`

	// AuditLogPath is the directory for per-feature JSONL audit logs.
	// Empty disables auditing (startup warning).
	AuditLogPath string `yaml:"audit_log_path"`
}

// OrchestratorConfig contains workflow executor settings.
type OrchestratorConfig struct {
	// AgentHubURL is the base URL of the Agent Hub service.
	AgentHubURL string `yaml:"agent_hub_url"`

	// GracefulShutdownTimeout is the max time to wait for in-flight phase
	// executions to finish during shutdown.
	GracefulShutdownTimeout Duration `yaml:"graceful_shutdown_timeout"`
}

// ForgeConfig holds the outbound issue-tracker integration settings.
// Disabled when Repository is empty.
type ForgeConfig struct {
	BaseURL    string `yaml:"base_url"`
	Repository string `yaml:"repository"`
	TokenEnv   string `yaml:"token_env,omitempty"`
}

// SlackConfig holds escalation notification settings.
// Disabled when Channel is empty or Enabled is false.
type SlackConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// EffectiveThreshold returns the confidence threshold for a topic: the
// override if present, else the hub default.
func (c *Config) EffectiveThreshold(topic string) int {
	if ov, ok := c.TopicOverrides[topic]; ok && ov.ConfidenceThreshold > 0 {
		return ov.ConfidenceThreshold
	}
	return c.Hub.DefaultThreshold
}

// KnownTopics returns the sorted union of override topics and every agent's
// declared topics. Used in unknown_topic error details.
func (c *Config) KnownTopics() []string {
	seen := make(map[string]struct{})
	for topic := range c.TopicOverrides {
		seen[topic] = struct{}{}
	}
	for _, agent := range c.AgentRegistry.GetAll() {
		for _, topic := range agent.Topics {
			seen[topic] = struct{}{}
		}
	}
	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
