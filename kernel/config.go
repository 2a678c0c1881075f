package kernel

import (
	"fmt"
	"os"

	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/memory"
	orchestrate "github.com/tailored-agentic-units/studyplan/orchestrate/config"
	"github.com/tailored-agentic-units/studyplan/session"
)

const defaultMaxToolIterations = 5

// Config holds initialization parameters for all kernel subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Agent   config.AgentConfig      `json:"agent" yaml:"agent"`
	Session session.Config          `json:"session" yaml:"session"`
	Memory  memory.Config           `json:"memory" yaml:"memory"`
	Chain   orchestrate.ChainConfig `json:"chain" yaml:"chain"`

	// Stages replaces the default pipeline when non-empty.
	Stages []StageConfig `json:"stages,omitempty" yaml:"stages,omitempty"`

	// MaxToolIterations bounds generation turns per stage.
	MaxToolIterations int `json:"max_tool_iterations,omitempty" yaml:"max_tool_iterations,omitempty"`

	// Observers names registered observers; empty means slog.
	Observers []string `json:"observers,omitempty" yaml:"observers,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Agent:             config.DefaultAgentConfig(),
		Session:           session.DefaultConfig(),
		Memory:            memory.DefaultConfig(),
		Chain:             orchestrate.ChainConfig{Observer: "noop"},
		MaxToolIterations: defaultMaxToolIterations,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Agent.Merge(&source.Agent)
	c.Session.Merge(&source.Session)
	c.Memory.Merge(&source.Memory)
	c.Chain.Merge(&source.Chain)

	if source.MaxToolIterations > 0 {
		c.MaxToolIterations = source.MaxToolIterations
	}
	if len(source.Stages) > 0 {
		c.Stages = source.Stages
	}
	if len(source.Observers) > 0 {
		c.Observers = source.Observers
	}
}

// Pipeline builds the configured pipeline, or the default one.
func (c *Config) Pipeline() (*Pipeline, error) {
	if len(c.Stages) == 0 {
		return DefaultPipeline(), nil
	}
	return NewPipeline(c.Stages...)
}

// LoadConfig reads a JSON or YAML config file (by extension), merges it with
// defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := unmarshalByExt(filename, data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
