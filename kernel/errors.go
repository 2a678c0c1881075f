package kernel

import "errors"

var (
	// ErrInvalidStage is returned when a stage definition is incomplete.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrEmptyPipeline is returned when a pipeline has no stages.
	ErrEmptyPipeline = errors.New("pipeline has no stages")

	// ErrUnknownTool is returned when a stage names a tool that is not
	// registered.
	ErrUnknownTool = errors.New("stage references unknown tool")

	// ErrToolLimit is the stage failure recorded when a stage keeps calling
	// tools past MaxToolIterations.
	ErrToolLimit = errors.New("tool iteration limit reached")

	// ErrEmptyOutput is the stage failure recorded when generation returns
	// no text.
	ErrEmptyOutput = errors.New("model returned no text")
)
