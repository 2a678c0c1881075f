package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/orchestrate/config"
)

// StepProcessor folds one item into the accumulated state.
type StepProcessor[TItem, TContext any] func(
	ctx context.Context,
	item TItem,
	state TContext,
) (TContext, error)

// ChainResult is the outcome of ProcessChain. Final holds the last good
// state. Intermediate is filled only when CaptureIntermediateStates is set;
// index 0 is the initial state and index N the state after step N.
type ChainResult[TContext any] struct {
	Final        TContext
	Intermediate []TContext
	Steps        int
}

const chainSource = "workflows.ProcessChain"

// ProcessChain runs items through processor in order. Cancellation is
// checked before each step; the first error stops the chain and is
// returned as a *ChainError. progress may be nil.
func ProcessChain[TItem, TContext any](
	ctx context.Context,
	cfg config.ChainConfig,
	items []TItem,
	initial TContext,
	processor StepProcessor[TItem, TContext],
	progress ProgressFunc[TContext],
) (ChainResult[TContext], error) {
	observer, err := cfg.ResolveObserver()
	if err != nil {
		return ChainResult[TContext]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	start := time.Now()
	result := ChainResult[TContext]{Final: initial}
	if cfg.CaptureIntermediateStates {
		result.Intermediate = make([]TContext, 0, len(items)+1)
		result.Intermediate = append(result.Intermediate, initial)
	}

	observer.OnEvent(ctx, observability.NewEvent(EventChainStart, observability.LevelVerbose, chainSource, map[string]any{
		"item_count": len(items),
	}))

	complete := func(steps int, errType string) {
		data := map[string]any{
			"steps_completed":         steps,
			observability.KeyDuration: time.Since(start),
			observability.KeyError:    errType != "",
		}
		level := observability.LevelVerbose
		if errType != "" {
			data["error_type"] = errType
			level = observability.LevelWarning
		}
		observer.OnEvent(ctx, observability.NewEvent(EventChainComplete, level, chainSource, data))
	}

	state := initial
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			complete(i, "cancellation")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       fmt.Errorf("processing cancelled: %w", err),
			}
		}

		observer.OnEvent(ctx, observability.NewEvent(EventStepStart, observability.LevelVerbose, chainSource, map[string]any{
			"step_index":  i,
			"total_steps": len(items),
		}))

		updated, err := processor(ctx, item, state)

		observer.OnEvent(ctx, observability.NewEvent(EventStepComplete, observability.LevelVerbose, chainSource, map[string]any{
			"step_index":           i,
			"total_steps":          len(items),
			observability.KeyError: err != nil,
		}))

		if err != nil {
			complete(i, "processor")
			return result, &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       err,
			}
		}

		state = updated
		result.Final = state
		result.Steps = i + 1
		if cfg.CaptureIntermediateStates {
			result.Intermediate = append(result.Intermediate, state)
		}

		if progress != nil {
			progress(i+1, len(items), state)
		}
	}

	complete(len(items), "")
	return result, nil
}
