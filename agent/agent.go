// Package agent defines the generation step used by pipeline stages and the
// registry of providers that construct it.
//
// Providers register a Factory under a name, usually from an init function,
// and callers build agents from configuration:
//
//	import _ "github.com/tailored-agentic-units/studyplan/agent/gemini"
//
//	a, err := agent.New(&cfg, agent.WithAPIKey(key))
package agent

import (
	"context"
	"net/http"

	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/core/response"
)

// Agent performs one generation turn over a conversation. The turn may
// request tool calls instead of returning final text.
type Agent interface {
	Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)
}

// Options carries per-construction values that must not live in config.
type Options struct {
	APIKey     string
	HTTPClient *http.Client
}

// Option configures Options.
type Option func(*Options)

// WithAPIKey scopes a credential to the constructed agent only.
func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

// WithHTTPClient overrides the transport used by HTTP-backed providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// Factory builds an Agent from configuration.
type Factory func(cfg *config.AgentConfig, opts Options) (Agent, error)

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)

func (f AgentFunc) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	return f(ctx, messages, tools)
}
