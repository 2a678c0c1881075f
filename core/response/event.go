package response

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one record emitted by the agent runtime while it executes a
// pipeline. Content is nil for records that carry no message, and each Part
// marks which of its optional members is present.
type Event struct {
	ID           string   `json:"id,omitempty"`
	InvocationID string   `json:"invocationId,omitempty"`
	Author       string   `json:"author,omitempty"`
	Timestamp    float64  `json:"timestamp,omitempty"`
	Partial      bool     `json:"partial,omitempty"`
	Content      *Content `json:"content,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// Content is the role-tagged message body of an Event.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is a single element of Content. Exactly one member is expected to be
// set, but decoding tolerates any combination.
type Part struct {
	Text             *string           `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall records a tool invocation made by a stage.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse records the result handed back to a stage.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// HasContent reports whether the event carries any parts.
func (e Event) HasContent() bool {
	return e.Content != nil && len(e.Content.Parts) > 0
}

// Text concatenates the text of every part that carries text, in order.
func (e Event) Text() string {
	if !e.HasContent() {
		return ""
	}
	var b strings.Builder
	for _, p := range e.Content.Parts {
		if p.HasText() {
			b.WriteString(*p.Text)
		}
	}
	return b.String()
}

// HasText reports whether the event carries non-blank text.
func (e Event) HasText() bool {
	return strings.TrimSpace(e.Text()) != ""
}

// HasText reports whether the part carries a non-empty text member.
func (p Part) HasText() bool {
	return p.Text != nil && *p.Text != ""
}

// NewTextEvent builds a model event carrying text authored by a stage.
func NewTextEvent(invocationID, author, text string) Event {
	e := newEvent(invocationID, author)
	e.Content = &Content{Role: "model", Parts: []Part{{Text: &text}}}
	return e
}

// NewFunctionCallEvent builds a text-less event recording a tool call.
func NewFunctionCallEvent(invocationID, author string, call FunctionCall) Event {
	e := newEvent(invocationID, author)
	e.Content = &Content{Role: "model", Parts: []Part{{FunctionCall: &call}}}
	return e
}

// NewFunctionResponseEvent builds a text-less event recording a tool result.
func NewFunctionResponseEvent(invocationID, author string, resp FunctionResponse) Event {
	e := newEvent(invocationID, author)
	e.Content = &Content{Role: "user", Parts: []Part{{FunctionResponse: &resp}}}
	return e
}

func newEvent(invocationID, author string) Event {
	return Event{
		ID:           uuid.Must(uuid.NewV7()).String(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    float64(time.Now().UnixMicro()) / 1e6,
	}
}
