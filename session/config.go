package session

import "github.com/tailored-agentic-units/studyplan/core/protocol"

// Config holds session parameters.
type Config struct {
	// MaxHistory bounds how many entries from earlier runs in the same
	// session are rendered as context. Zero keeps them all.
	MaxHistory int `json:"max_history,omitempty" yaml:"max_history,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxHistory > 0 {
		c.MaxHistory = source.MaxHistory
	}
}

// New creates a Session from configuration. Sessions are in-memory; durable
// chat history lives in the web service's store.
func New(cfg *Config) (Session, error) {
	return NewMemorySession(), nil
}

// History returns the entries of s that a new run should see as context,
// honoring MaxHistory.
func (c Config) History(s Session) []protocol.Message {
	msgs := s.Messages()
	if c.MaxHistory > 0 && len(msgs) > c.MaxHistory {
		return msgs[len(msgs)-c.MaxHistory:]
	}
	return msgs
}
