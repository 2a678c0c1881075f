package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/tools"
)

// FallbackText is the entry a stage leaves when it cannot produce output.
func FallbackText(stage string, reason error) string {
	return fmt.Sprintf("[%s] unable to complete this step: %v", stage, reason)
}

// runStage drives one stage to a text output. It never returns an error:
// every failure becomes a fallback outcome.
func (k *Kernel) runStage(ctx context.Context, a agent.Agent, stage Stage, st *runState, emit func(StepEvent)) StageOutcome {
	start := time.Now()
	outcome := StageOutcome{Stage: stage.Name()}

	k.observer.OnEvent(ctx, observability.NewEvent(EventStageStart, observability.LevelVerbose, "kernel.runStage", map[string]any{
		observability.KeyStage: stage.Name(),
		"tools":                len(stage.tools),
	}))

	// Tools can leave the registry after New validated the stage.
	if defs, err := k.tools.Definitions(stage.tools...); err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrUnknownTool, err)
	} else {
		k.generate(ctx, a, stage, st, defs, &outcome, emit)
	}

	if outcome.Err != nil {
		outcome.Text = FallbackText(stage.Name(), outcome.Err)
	}
	outcome.Duration = time.Since(start)

	level := observability.LevelInfo
	data := map[string]any{
		observability.KeyStage:    stage.Name(),
		observability.KeyDuration: outcome.Duration,
		"turns":                   outcome.Turns,
		"tool_calls":              outcome.ToolCalls,
		"output_length":           len(outcome.Text),
		observability.KeyError:    outcome.Err != nil,
	}
	if outcome.Err != nil {
		level = observability.LevelWarning
		data["reason"] = outcome.Err.Error()
	}
	k.observer.OnEvent(ctx, observability.NewEvent(EventStageComplete, level, "kernel.runStage", data))

	return outcome
}

func (k *Kernel) invokeTool(ctx context.Context, stage Stage, call protocol.ToolCall) tools.Result {
	k.observer.OnEvent(ctx, observability.NewEvent(EventToolCall, observability.LevelVerbose, "kernel.runStage", map[string]any{
		observability.KeyStage: stage.Name(),
		observability.KeyTool:  call.Name,
	}))

	start := time.Now()
	var result tools.Result
	if stage.Allows(call.Name) {
		result = k.tools.Invoke(ctx, call.Name, call.Arguments)
	} else {
		result = tools.Failure("tool %s is not available to %s", call.Name, stage.Name())
	}

	k.observer.OnEvent(ctx, observability.NewEvent(EventToolComplete, observability.LevelVerbose, "kernel.runStage", map[string]any{
		observability.KeyStage:    stage.Name(),
		observability.KeyTool:     call.Name,
		observability.KeyError:    result.IsError,
		observability.KeyDuration: time.Since(start),
	}))

	return result
}

// generate runs the tool loop of stage until it yields text, fails, or
// exhausts the turn budget.
func (k *Kernel) generate(ctx context.Context, a agent.Agent, stage Stage, st *runState, defs []protocol.Tool, outcome *StageOutcome, emit func(StepEvent)) {
	messages := []protocol.Message{protocol.NewMessage(protocol.RoleSystem, k.instruction(stage))}
	messages = append(messages, st.contextMessages()...)

	outcome.Err = ErrToolLimit
	for turn := 1; turn <= k.maxToolIterations; turn++ {
		outcome.Turns = turn

		resp, err := a.Tools(ctx, messages, defs)
		if err != nil {
			outcome.Err = fmt.Errorf("generation failed: %w", err)
			break
		}

		if !resp.HasToolCalls() {
			if text := resp.Text(); text != "" {
				outcome.Text = text
				outcome.Err = nil
			} else {
				outcome.Err = ErrEmptyOutput
			}
			break
		}

		messages = append(messages, protocol.Message{
			Role:      protocol.RoleAssistant,
			Author:    stage.Name(),
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			emit(StepEvent{Kind: StepToolCall, Stage: stage.Name(), Call: call})

			result := k.invokeTool(ctx, stage, call)
			messages = append(messages, protocol.NewToolResult(call, result.Content))

			st.result.ToolCalls = append(st.result.ToolCalls, ToolCallRecord{
				ToolCall: call,
				Stage:    stage.Name(),
				Turn:     turn,
				Result:   result.Content,
				IsError:  result.IsError,
			})
			outcome.ToolCalls++

			emit(StepEvent{Kind: StepToolResult, Stage: stage.Name(), Call: call, Result: result})
		}
	}
}
