package kernel

import (
	"strings"
	"time"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/session"
	"github.com/tailored-agentic-units/studyplan/tools"
)

// RunOption configures a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	apiKey  string
	session session.Session
	hook    func(StepEvent)
}

// WithAPIKey scopes the model credential to this run only.
func WithAPIKey(key string) RunOption {
	return func(o *runOptions) { o.apiKey = key }
}

// WithSession continues the conversation held by s. Earlier entries are
// shown to every stage as context and the run's entries are appended to s.
func WithSession(s session.Session) RunOption {
	return func(o *runOptions) { o.session = s }
}

// WithStepHook reports tool calls, tool results and stage outputs as they
// happen. The hook runs on the pipeline goroutine.
func WithStepHook(fn func(StepEvent)) RunOption {
	return func(o *runOptions) { o.hook = fn }
}

func (o runOptions) emit(e StepEvent) {
	if o.hook != nil {
		o.hook(e)
	}
}

// StepKind classifies a StepEvent.
type StepKind int

const (
	StepToolCall StepKind = iota
	StepToolResult
	StepStageOutput
)

func (k StepKind) String() string {
	switch k {
	case StepToolCall:
		return "tool_call"
	case StepToolResult:
		return "tool_result"
	case StepStageOutput:
		return "stage_output"
	default:
		return "unknown"
	}
}

// StepEvent is one observable step of a run.
type StepEvent struct {
	Kind   StepKind
	Stage  string
	Call   protocol.ToolCall // StepToolCall, StepToolResult
	Result tools.Result      // StepToolResult
	Text   string            // StepStageOutput
	Err    error             // StepStageOutput, set when the stage degraded
}

// StageOutcome is what one stage contributed. Err is set when Text is a
// fallback rather than generated output.
type StageOutcome struct {
	Stage     string
	Text      string
	Err       error
	Turns     int
	ToolCalls int
	Duration  time.Duration
}

// Degraded reports whether the stage fell back.
func (o StageOutcome) Degraded() bool {
	return o.Err != nil
}

// ToolCallRecord logs one tool invocation.
type ToolCallRecord struct {
	protocol.ToolCall
	Stage   string
	Turn    int
	Result  string
	IsError bool
}

// Result holds the outcome of a Run.
type Result struct {
	// Response is the full transcript: every stage output in order,
	// separated by blank lines.
	Response string

	// Final is the last stage's output.
	Final string

	// Entries is this run's conversation: the user prompt followed by one
	// entry per completed stage.
	Entries []protocol.Message

	Stages    []StageOutcome
	ToolCalls []ToolCallRecord
}

// Degraded counts stages that fell back.
func (r *Result) Degraded() int {
	n := 0
	for _, s := range r.Stages {
		if s.Degraded() {
			n++
		}
	}
	return n
}

func (r *Result) finish() {
	parts := make([]string, 0, len(r.Stages))
	for _, s := range r.Stages {
		parts = append(parts, s.Text)
	}
	r.Response = strings.Join(parts, "\n\n")
	if len(r.Stages) > 0 {
		r.Final = r.Stages[len(r.Stages)-1].Text
	}
}

// runState is the value threaded through the chain.
type runState struct {
	prior   []protocol.Message
	entries []protocol.Message
	result  *Result
}

func (s *runState) append(m protocol.Message) {
	s.entries = append(s.entries, m)
	s.result.Entries = append(s.result.Entries, m)
}

// contextMessages renders earlier conversation for a stage. User entries
// stay user messages; stage entries are restated as user messages naming
// the stage so each stage sees them as input rather than as its own turns.
func (s *runState) contextMessages() []protocol.Message {
	out := make([]protocol.Message, 0, len(s.prior)+len(s.entries))
	for _, group := range [][]protocol.Message{s.prior, s.entries} {
		for _, m := range group {
			switch {
			case m.Role == protocol.RoleUser:
				out = append(out, protocol.NewMessage(protocol.RoleUser, m.Content))
			case m.Role == protocol.RoleAssistant && m.Content != "":
				out = append(out, protocol.NewMessage(protocol.RoleUser, contextLine(m.Speaker(), m.Content)))
			}
		}
	}
	return out
}

func contextLine(speaker, text string) string {
	return "For context: [" + speaker + "] said: " + text
}
