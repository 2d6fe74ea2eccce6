package config

import (
	"fmt"
	"net/url"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	if cfg.AgentRegistry.Len() == 0 {
		return &ValidationError{Component: "agents", ID: "*", Err: ErrMissingRequiredField}
	}

	for id, agent := range cfg.AgentRegistry.GetAll() {
		if agent.URL == "" {
			return &ValidationError{Component: "agent", ID: id, Field: "url", Err: ErrMissingRequiredField}
		}
		if _, err := url.ParseRequestURI(agent.URL); err != nil {
			return &ValidationError{Component: "agent", ID: id, Field: "url", Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
		}
		if agent.DefaultTimeout <= 0 {
			return &ValidationError{Component: "agent", ID: id, Field: "default_timeout", Err: ErrInvalidValue}
		}
	}

	for topic, override := range cfg.TopicOverrides {
		if override.Agent == "" {
			return &ValidationError{Component: "topic", ID: topic, Field: "agent", Err: ErrMissingRequiredField}
		}
		if !cfg.AgentRegistry.Has(override.Agent) {
			return &ValidationError{Component: "topic", ID: topic, Field: "agent",
				Err: fmt.Errorf("%w: %s", ErrAgentNotFound, override.Agent)}
		}
		if override.ConfidenceThreshold < 0 || override.ConfidenceThreshold > 100 {
			return &ValidationError{Component: "topic", ID: topic, Field: "confidence_threshold", Err: ErrInvalidValue}
		}
	}

	if cfg.Workflows.DefaultAgent == "" {
		// Without a default, every workflow type needs an explicit mapping.
		for _, workflowType := range []models.WorkflowType{
			models.WorkflowTypeSpecify, models.WorkflowTypePlan,
			models.WorkflowTypeTasks, models.WorkflowTypeImplement,
		} {
			if _, ok := cfg.Workflows.AgentMapping[workflowType]; !ok {
				return &ValidationError{Component: "workflows", ID: string(workflowType),
					Field: "default_agent", Err: ErrMissingRequiredField}
			}
		}
	} else if !cfg.AgentRegistry.Has(cfg.Workflows.DefaultAgent) {
		return &ValidationError{Component: "workflows", ID: "default_agent",
			Err: fmt.Errorf("%w: %s", ErrAgentNotFound, cfg.Workflows.DefaultAgent)}
	}
	for workflowType, agent := range cfg.Workflows.AgentMapping {
		if !workflowType.IsValid() {
			return &ValidationError{Component: "workflows", ID: string(workflowType), Field: "agent_mapping", Err: ErrInvalidValue}
		}
		if !cfg.AgentRegistry.Has(agent) {
			return &ValidationError{Component: "workflows", ID: string(workflowType),
				Err: fmt.Errorf("%w: %s", ErrAgentNotFound, agent)}
		}
	}

	if cfg.Hub.DefaultThreshold < 0 || cfg.Hub.DefaultThreshold > 100 {
		return &ValidationError{Component: "hub", ID: "default_threshold", Err: ErrInvalidValue}
	}
	if cfg.Hub.SessionTTL <= 0 {
		return &ValidationError{Component: "hub", ID: "session_ttl", Err: ErrInvalidValue}
	}
	if cfg.Hub.EscalationTTL <= 0 {
		return &ValidationError{Component: "hub", ID: "escalation_ttl", Err: ErrInvalidValue}
	}

	if cfg.Forge != nil && cfg.Forge.Repository != "" && cfg.Forge.BaseURL == "" {
		return &ValidationError{Component: "forge", ID: cfg.Forge.Repository, Field: "base_url", Err: ErrMissingRequiredField}
	}

	return nil
}
