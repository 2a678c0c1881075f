// Package mock provides a scripted Agent for tests and offline runs.
//
// A scripted agent replays its turns in order. Once the script is exhausted
// it echoes the first user message, which is also the behavior of agents
// built through the "mock" provider.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/core/response"
)

// ProviderName is the registry name of the mock provider.
const ProviderName = "mock"

func init() {
	if err := agent.Register(ProviderName, Factory); err != nil {
		panic(err)
	}
}

// Factory builds an echo agent. No credential is required.
func Factory(cfg *config.AgentConfig, _ agent.Options) (agent.Agent, error) {
	return &Agent{model: cfg.ModelName()}, nil
}

// Turn is one scripted generation result.
type Turn struct {
	Response *response.ToolsResponse
	Err      error
}

// Text scripts a final text turn.
func Text(content string) Turn {
	return Turn{Response: &response.ToolsResponse{Model: ProviderName, Content: content}}
}

// Call scripts a turn that requests a single tool call.
func Call(name string, args map[string]any) Turn {
	raw, _ := json.Marshal(args)
	return Turn{Response: &response.ToolsResponse{
		Model: ProviderName,
		ToolCalls: []protocol.ToolCall{{
			ID:        uuid.NewString(),
			Name:      name,
			Arguments: raw,
		}},
	}}
}

// Fail scripts a generation error.
func Fail(err error) Turn {
	return Turn{Err: err}
}

// Agent is a scripted agent. Safe for concurrent use.
type Agent struct {
	mu    sync.Mutex
	model string
	turns []Turn
	calls [][]protocol.Message
	tools [][]protocol.Tool
}

// New creates an Agent that replays turns in order.
func New(turns ...Turn) *Agent {
	return &Agent{model: ProviderName, turns: turns}
}

func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls = append(a.calls, slices.Clone(messages))
	a.tools = append(a.tools, slices.Clone(tools))

	if len(a.turns) == 0 {
		return a.echo(messages), nil
	}

	turn := a.turns[0]
	a.turns = a.turns[1:]
	if turn.Err != nil {
		return nil, turn.Err
	}
	resp := *turn.Response
	return &resp, nil
}

// Calls returns the message history seen by each Tools call.
func (a *Agent) Calls() [][]protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

// OfferedTools returns the tool set offered on each Tools call.
func (a *Agent) OfferedTools() [][]protocol.Tool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.tools)
}

// Remaining reports how many scripted turns have not been consumed.
func (a *Agent) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.turns)
}

func (a *Agent) echo(messages []protocol.Message) *response.ToolsResponse {
	prompt := ""
	for _, m := range messages {
		if m.Role == protocol.RoleUser {
			prompt = m.Content
			break
		}
	}
	return &response.ToolsResponse{
		Model:   a.model,
		Content: fmt.Sprintf("[%s] %s", a.model, prompt),
	}
}
