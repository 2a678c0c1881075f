package memory

import (
	"fmt"
	"path"
	"strings"
)

// NamespaceAgents is the key prefix for stage instruction overrides.
const NamespaceAgents = "agents"

// Entry is one key-value pair.
type Entry struct {
	Key   string
	Value []byte
}

// AgentKey returns the key holding the instruction override for stage.
func AgentKey(stage string) string {
	return NamespaceAgents + "/" + stage
}

// ValidateKey rejects keys that are empty, absolute, or escape the
// namespace root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
