package config

import "github.com/tailored-agentic-units/studyplan/observability"

// ChainConfig configures sequential chain execution.
//
// Observer names a registered observer so the config can come from JSON or
// YAML. WithObserver attaches an instance directly and takes precedence.
type ChainConfig struct {
	// CaptureIntermediateStates records the state after every step in
	// ChainResult.Intermediate.
	CaptureIntermediateStates bool `json:"capture_intermediate_states,omitempty" yaml:"capture_intermediate_states,omitempty"`

	// Observer is the registered observer name ("noop", "slog", ...).
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`

	observer observability.Observer
}

// DefaultChainConfig returns the default chain configuration.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{Observer: "slog"}
}

// Merge applies non-zero values from source into c.
func (c *ChainConfig) Merge(source *ChainConfig) {
	if source.CaptureIntermediateStates {
		c.CaptureIntermediateStates = true
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.observer != nil {
		c.observer = source.observer
	}
}

// WithObserver returns a copy of c that reports to o.
func (c ChainConfig) WithObserver(o observability.Observer) ChainConfig {
	c.observer = o
	return c
}

// ResolveObserver returns the attached observer, or the registered one
// named by Observer.
func (c ChainConfig) ResolveObserver() (observability.Observer, error) {
	if c.observer != nil {
		return c.observer, nil
	}
	if c.Observer == "" {
		return observability.NoOpObserver{}, nil
	}
	return observability.GetObserver(c.Observer)
}
