package response

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
)

// TokenUsage reports token accounting for one generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolsResponse is one model turn produced by a tool-capable generation
// call. A turn either requests tool calls or carries final text.
type ToolsResponse struct {
	ID        string              `json:"id,omitempty"`
	Model     string              `json:"model"`
	Content   string              `json:"content"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
	Usage     *TokenUsage         `json:"usage,omitempty"`
}

// HasToolCalls reports whether the turn requests any tool invocation.
func (r *ToolsResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Text returns the turn's text with surrounding whitespace removed.
func (r *ToolsResponse) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Content)
}

// ParseTools parses a tools response from JSON bytes.
func ParseTools(body []byte) (*ToolsResponse, error) {
	var response ToolsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}
	return &response, nil
}
