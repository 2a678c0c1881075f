package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/studyplan/kernel"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once for a prompt and print the plan",
	RunE:  runOnce,
}

func init() {
	f := runCmd.Flags()
	f.String("prompt", "", "Topic and level to plan for (required)")
	f.String("api-key", "", "Model credential (default $STUDYPLAN_API_KEY or $GOOGLE_API_KEY)")
	_ = runCmd.MarkFlagRequired("prompt")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	if cfg.APIKey == "" {
		return errors.New("no API key: set --api-key or GOOGLE_API_KEY")
	}

	kc, err := kernelConfig()
	if err != nil {
		return err
	}
	k, err := newKernel(kc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := k.Run(ctx, prompt,
		kernel.WithAPIKey(cfg.APIKey),
		kernel.WithStepHook(func(e kernel.StepEvent) {
			slog.Debug("step", "kind", e.Kind.String(), "stage", e.Stage, "tool", e.Call.Name)
		}),
	)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Response)

	if len(result.ToolCalls) > 0 {
		fmt.Fprintln(out, "\nTool Calls:")
		for i, tc := range result.ToolCalls {
			fmt.Fprintf(out, "  [%d] %s %s(%s)\n", i+1, tc.Stage, tc.Name, tc.Arguments)
			if tc.IsError {
				fmt.Fprintf(out, "    error: %s\n", tc.Result)
			}
		}
	}
	if n := result.Degraded(); n > 0 {
		fmt.Fprintf(out, "\n%d of %d stages fell back\n", n, len(result.Stages))
	}
	return nil
}
