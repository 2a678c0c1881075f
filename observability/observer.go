// Package observability carries structured events from the pipeline, the
// tool layer, the runtime bridge and the HTTP services to logs and metrics.
// Level values align with OpenTelemetry SeverityNumbers so events can be
// forwarded to an OTel collector without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants, e.g. "kernel.stage.complete" or "bridge.send".
type EventType string

// Well-known Data keys. Observers that aggregate (metrics) look for these.
const (
	KeyStage    = "stage"
	KeyTool     = "tool"
	KeyError    = "error"
	KeyDuration = "duration"
)

// Event is an observability event. Fields map to OTel LogRecord fields:
// Type is the EventName, Level the SeverityNumber, Source the
// InstrumentationScope and Data the Attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent creates an Event stamped with the current time.
func NewEvent(typ EventType, level Level, source string, data map[string]any) Event {
	return Event{Type: typ, Level: level, Timestamp: time.Now(), Source: source, Data: data}
}

// Failed reports whether the event records an error, either through its
// level or a truthy/non-empty error attribute.
func (e Event) Failed() bool {
	if e.Level >= LevelError {
		return true
	}
	switch v := e.Data[KeyError].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case error:
		return v != nil
	}
	return false
}

// Observer receives events for logging, tracing, or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}
