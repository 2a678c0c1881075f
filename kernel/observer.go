package kernel

import "github.com/tailored-agentic-units/studyplan/observability"

// Kernel event types emitted while a pipeline runs.
const (
	EventRunStart      observability.EventType = "kernel.run.start"
	EventRunComplete   observability.EventType = "kernel.run.complete"
	EventStageStart    observability.EventType = "kernel.stage.start"
	EventStageComplete observability.EventType = "kernel.stage.complete"
	EventToolCall      observability.EventType = "kernel.tool.call"
	EventToolComplete  observability.EventType = "kernel.tool.complete"
	EventMemoryError   observability.EventType = "kernel.memory.error"
)
