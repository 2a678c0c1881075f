package bridge

import (
	"time"

	"github.com/tailored-agentic-units/studyplan/core/config"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8081"
	DefaultAppName = "study_planner"
	DefaultTimeout = 300 * time.Second
)

// Config locates the agent runtime.
type Config struct {
	BaseURL string          `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	AppName string          `json:"app_name,omitempty" yaml:"app_name,omitempty" mapstructure:"app_name"`
	Timeout config.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`

	// Streaming sends to the event-stream endpoint instead of the
	// aggregate one.
	Streaming bool `json:"streaming,omitempty" yaml:"streaming,omitempty" mapstructure:"streaming"`
}

// DefaultConfig returns the configuration of a runtime on the local host.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		AppName: DefaultAppName,
		Timeout: config.Duration(DefaultTimeout),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.AppName != "" {
		c.AppName = source.AppName
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.Streaming {
		c.Streaming = true
	}
}
