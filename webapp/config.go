package webapp

import (
	"time"

	"github.com/tailored-agentic-units/studyplan/core/config"
)

const (
	DefaultAddr    = ":8080"
	DefaultLockTTL = 330 * time.Second
)

// Config configures the web service.
type Config struct {
	Addr        string          `json:"addr" yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string        `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`
	LockTTL     config.Duration `json:"lock_ttl" yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        DefaultAddr,
		CORSOrigins: []string{"http://localhost:5173"},
		LockTTL:     config.Duration(DefaultLockTTL),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if len(source.CORSOrigins) > 0 {
		c.CORSOrigins = source.CORSOrigins
	}
	if source.LockTTL > 0 {
		c.LockTTL = source.LockTTL
	}
}
