// Package session holds the conversation threaded through a pipeline run
// and the remote sessions served by the agent runtime.
//
// A Session is append-only: entries are never edited, removed or
// reordered, so every stage of a run observes a prefix of what later
// stages observe.
package session

import (
	"github.com/tailored-agentic-units/studyplan/core/protocol"
)

// Session holds an ordered, append-only sequence of conversation entries.
// Implementations must be safe for concurrent use.
type Session interface {
	// ID returns the unique session identifier.
	ID() string
	// AddMessage appends an entry.
	AddMessage(msg protocol.Message)
	// Messages returns a copy of the entries in insertion order.
	Messages() []protocol.Message
	// Len reports the number of entries.
	Len() int
}
