// Package config holds the configuration types shared by agent providers.
//
// Every type follows the same lifecycle: start from a Default* value, decode
// a partial document over a zero value, then Merge the decoded value into
// the defaults. Merge only copies fields that are set in the source.
package config

import (
	"maps"
	"time"
)

const (
	DefaultProvider = "gemini"
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimeout  = 120 * time.Second
)

// ProviderConfig selects the backend that serves generation calls.
type ProviderConfig struct {
	Name    string         `json:"name" yaml:"name"`
	BaseURL string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// ModelConfig names the model and its generation options
// (temperature, max_output_tokens, and the like).
type ModelConfig struct {
	Name    string         `json:"name" yaml:"name"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// AgentConfig describes how to build an agent. Credentials are never part of
// the config; they are supplied per call.
type AgentConfig struct {
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	Provider *ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    *ModelConfig    `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout  Duration        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultAgentConfig returns a Gemini configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Provider: &ProviderConfig{Name: DefaultProvider},
		Model:    &ModelConfig{Name: DefaultModel},
		Timeout:  Duration(DefaultTimeout),
	}
}

// Merge applies non-zero values from source into c.
func (c *AgentConfig) Merge(source *AgentConfig) {
	if source == nil {
		return
	}
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}

	if source.Provider != nil {
		if c.Provider == nil {
			c.Provider = &ProviderConfig{}
		}
		if source.Provider.Name != "" {
			c.Provider.Name = source.Provider.Name
		}
		if source.Provider.BaseURL != "" {
			c.Provider.BaseURL = source.Provider.BaseURL
		}
		c.Provider.Options = mergeOptions(c.Provider.Options, source.Provider.Options)
	}

	if source.Model != nil {
		if c.Model == nil {
			c.Model = &ModelConfig{}
		}
		if source.Model.Name != "" {
			c.Model.Name = source.Model.Name
		}
		c.Model.Options = mergeOptions(c.Model.Options, source.Model.Options)
	}
}

// Clone returns a deep copy so per-stage overrides never alias the base.
func (c AgentConfig) Clone() AgentConfig {
	out := c
	if c.Provider != nil {
		p := *c.Provider
		p.Options = maps.Clone(c.Provider.Options)
		out.Provider = &p
	}
	if c.Model != nil {
		m := *c.Model
		m.Options = maps.Clone(c.Model.Options)
		out.Model = &m
	}
	return out
}

// ProviderName returns the configured provider or the default.
func (c *AgentConfig) ProviderName() string {
	if c.Provider == nil || c.Provider.Name == "" {
		return DefaultProvider
	}
	return c.Provider.Name
}

// ModelName returns the configured model or the default.
func (c *AgentConfig) ModelName() string {
	if c.Model == nil || c.Model.Name == "" {
		return DefaultModel
	}
	return c.Model.Name
}

func mergeOptions(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	maps.Copy(dst, src)
	return dst
}
