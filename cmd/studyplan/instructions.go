package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/memory"
)

var instructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Manage stage instruction overrides in the configured memory store",
	Long: `Stage instructions can be replaced without a redeploy by storing an
override under agents/<stage> in the memory backend of --config. The
runtime picks overrides up at the start of every run.`,
}

func init() {
	setCmd := &cobra.Command{
		Use:   "set <stage> [text]",
		Short: "Override a stage instruction",
		Long:  "Override a stage instruction with text, or with --file, or with stdin when text is \"-\".",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  setInstruction,
	}
	setCmd.Flags().String("file", "", "Read the instruction from a file")

	instructionsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every stage with its effective instruction",
			Args:  cobra.NoArgs,
			RunE:  listInstructions,
		},
		setCmd,
		&cobra.Command{
			Use:   "reset <stage>",
			Short: "Remove a stage override",
			Args:  cobra.ExactArgs(1),
			RunE:  resetInstruction,
		},
	)
}

// overrides opens the memory store of the kernel config with agents/
// bootstrapped.
func overrides(ctx context.Context) (*memory.Cache, *kernel.Pipeline, error) {
	kc, err := kernelConfig()
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := kc.Pipeline()
	if err != nil {
		return nil, nil, err
	}

	store, err := memory.NewStore(&kc.Memory)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("memory is disabled: set memory.backend in --config")
	}

	cache := memory.NewCache(store)
	if err := cache.Bootstrap(ctx, memory.NamespaceAgents+"/"); err != nil {
		return nil, nil, err
	}
	return cache, pipeline, nil
}

func stageArg(p *kernel.Pipeline, name string) (kernel.Stage, error) {
	stage, ok := p.Stage(name)
	if !ok {
		return kernel.Stage{}, fmt.Errorf("unknown stage %q (have %s)", name, strings.Join(p.Names(), ", "))
	}
	return stage, nil
}

func listInstructions(cmd *cobra.Command, _ []string) error {
	cache, pipeline, err := overrides(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, stage := range pipeline.Stages() {
		text, source := stage.Instruction(), "default"
		if v, ok := cache.Get(memory.AgentKey(stage.Name())); ok && strings.TrimSpace(string(v)) != "" {
			text, source = strings.TrimSpace(string(v)), "override"
		}
		fmt.Fprintf(out, "== %s (%s)\n%s\n\n", stage.Name(), source, text)
	}
	return nil
}

func setInstruction(cmd *cobra.Command, args []string) error {
	cache, pipeline, err := overrides(cmd.Context())
	if err != nil {
		return err
	}
	stage, err := stageArg(pipeline, args[0])
	if err != nil {
		return err
	}

	text, err := instructionText(cmd, args[1:])
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("instruction is empty")
	}

	cache.Set(memory.AgentKey(stage.Name()), []byte(text))
	if err := cache.Flush(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", stage.Name())
	return nil
}

func instructionText(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		return string(data), err
	}
	if len(args) == 0 {
		return "", errors.New("pass the instruction text, \"-\" for stdin, or --file")
	}
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	return args[0], nil
}

func resetInstruction(cmd *cobra.Command, args []string) error {
	cache, pipeline, err := overrides(cmd.Context())
	if err != nil {
		return err
	}
	stage, err := stageArg(pipeline, args[0])
	if err != nil {
		return err
	}

	key := memory.AgentKey(stage.Name())
	if !cache.Has(key) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no override\n", stage.Name())
		return nil
	}
	cache.Delete(key)
	if err := cache.Flush(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", stage.Name())
	return nil
}
