package protocol

import "encoding/json"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by a model turn. Arguments hold
// the raw JSON object produced by the model.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message represents a single message in a conversation.
//
// Author names the producer of assistant content. Pipeline stages set it to
// their stage identifier so the conversation records which stage said what.
// Tool result messages carry ToolCallID and ToolName to correlate back to
// the originating call.
type Message struct {
	Role       Role       `json:"role"`
	Author     string     `json:"author,omitempty"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// NewMessage creates a Message with the given role and content.
//
//	msg := protocol.NewMessage(protocol.RoleUser, "Plan a week on photosynthesis")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewAuthoredMessage creates an assistant Message attributed to author.
func NewAuthoredMessage(author, content string) Message {
	return Message{Role: RoleAssistant, Author: author, Content: content}
}

// NewToolResult creates the tool message answering call.
func NewToolResult(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// Speaker returns the author when set, otherwise the role.
func (m Message) Speaker() string {
	if m.Author != "" {
		return m.Author
	}
	return string(m.Role)
}
