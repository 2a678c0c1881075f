package workflows

import "github.com/tailored-agentic-units/studyplan/observability"

// Sequential chain events.
const (
	EventChainStart    observability.EventType = "chain.start"
	EventChainComplete observability.EventType = "chain.complete"
	EventStepStart     observability.EventType = "step.start"
	EventStepComplete  observability.EventType = "step.complete"
)
