package config

import (
	"time"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// Built-in defaults applied when the YAML leaves values unset.
const (
	// DefaultConfidenceThreshold gates answers when no override applies.
	DefaultConfidenceThreshold = 80

	// DefaultAgentTimeout bounds each worker invoke call.
	DefaultAgentTimeout = 120 * time.Second
)

// DefaultHubConfig returns the built-in hub defaults.
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		DefaultThreshold: DefaultConfidenceThreshold,
		SessionTTL:       Duration(1 * time.Hour),
		EscalationTTL:    Duration(7 * 24 * time.Hour),
		AuditLogPath:     "./logs",
	}
}

// DefaultOrchestratorConfig returns the built-in orchestrator defaults.
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		AgentHubURL:             "http://localhost:8001",
		GracefulShutdownTimeout: Duration(2 * time.Minute),
	}
}

// DefaultWorkflowsConfig returns the built-in workflow mapping: one phase
// per type, agent assignment left to the YAML (validated at startup).
func DefaultWorkflowsConfig() *WorkflowsConfig {
	return &WorkflowsConfig{
		AgentMapping: map[models.WorkflowType]string{},
		Phases:       map[models.WorkflowType][]string{},
	}
}
