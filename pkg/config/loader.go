package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// maestroYAML represents the complete maestro.yaml file structure.
type maestroYAML struct {
	Agents       map[string]*AgentConfig   `yaml:"agents"`
	Topics       map[string]*TopicOverride `yaml:"topics"`
	Workflows    *WorkflowsConfig          `yaml:"workflows"`
	Hub          *HubConfig                `yaml:"hub"`
	Orchestrator *OrchestratorConfig       `yaml:"orchestrator"`
	Forge        *ForgeConfig              `yaml:"forge"`
	Slack        *SlackConfig              `yaml:"slack"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read the YAML file
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in defaults (user values override)
//  5. Apply environment overrides (AUDIT_LOG_PATH, SESSION_EXPIRY_HOURS, ...)
//  6. Build the agent registry
//  7. Validate everything
func Initialize(_ context.Context, configPath string) (*Config, error) {
	log := slog.With("config_path", configPath)
	log.Info("Initializing configuration")

	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"agents", cfg.AgentRegistry.Len(),
		"topic_overrides", len(cfg.TopicOverrides),
		"default_threshold", cfg.Hub.DefaultThreshold)

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(configPath, ErrConfigNotFound)
		}
		return nil, NewLoadError(configPath, err)
	}

	expanded := ExpandEnv(raw)

	var parsed maestroYAML
	if err := yaml.Unmarshal(expanded, &parsed); err != nil {
		return nil, NewLoadError(configPath, fmt.Errorf("%w: %w", ErrInvalidYAML, err))
	}

	// Merge user YAML on top of built-in defaults so unset fields keep
	// their defaults.
	hubCfg := DefaultHubConfig()
	if parsed.Hub != nil {
		if err := mergo.Merge(hubCfg, parsed.Hub, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge hub config: %w", err)
		}
	}

	orchCfg := DefaultOrchestratorConfig()
	if parsed.Orchestrator != nil {
		if err := mergo.Merge(orchCfg, parsed.Orchestrator, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge orchestrator config: %w", err)
		}
	}

	workflowsCfg := DefaultWorkflowsConfig()
	if parsed.Workflows != nil {
		if err := mergo.Merge(workflowsCfg, parsed.Workflows, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge workflows config: %w", err)
		}
	}

	applyEnvOverrides(hubCfg, orchCfg)

	// Per-agent defaults.
	for _, agent := range parsed.Agents {
		if agent.DefaultTimeout == 0 {
			agent.DefaultTimeout = Duration(DefaultAgentTimeout)
		}
	}

	overrides := parsed.Topics
	if overrides == nil {
		overrides = map[string]*TopicOverride{}
	}

	return &Config{
		configPath:     configPath,
		AgentRegistry:  NewAgentRegistry(parsed.Agents),
		TopicOverrides: overrides,
		Workflows:      workflowsCfg,
		Hub:            hubCfg,
		Orchestrator:   orchCfg,
		Forge:          parsed.Forge,
		Slack:          parsed.Slack,
	}, nil
}

// applyEnvOverrides applies well-known environment variables on top of the
// YAML values. Environment wins: deployments tune these without editing the
// config file.
func applyEnvOverrides(hub *HubConfig, orch *OrchestratorConfig) {
	if v := os.Getenv("AUDIT_LOG_PATH"); v != "" {
		hub.AuditLogPath = v
	}
	if v := os.Getenv("SESSION_EXPIRY_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			hub.SessionTTL = Duration(time.Duration(hours) * time.Hour)
		} else {
			slog.Warn("Ignoring invalid SESSION_EXPIRY_HOURS", "value", v)
		}
	}
	if v := os.Getenv("ESCALATION_THRESHOLD"); v != "" {
		if threshold, err := strconv.Atoi(v); err == nil && threshold >= 0 && threshold <= 100 {
			hub.DefaultThreshold = threshold
		} else {
			slog.Warn("Ignoring invalid ESCALATION_THRESHOLD", "value", v)
		}
	}
	if v := os.Getenv("AGENT_HUB_URL"); v != "" {
		orch.AgentHubURL = v
	}
}
