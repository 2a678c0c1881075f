package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/runtime"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Run the agent runtime hosting the study-planning pipeline",
	Long: `Serves the session and run endpoints the web service forwards to.
Each run uses the model credential sent in its X-API-Key header.`,
	RunE: runRuntime,
}

func init() {
	f := runtimeCmd.Flags()
	f.String("runtime-addr", "127.0.0.1:8081", "Listen address")
	f.String("app-name", "study_planner", "App name served under /apps")
}

func runRuntime(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer, err := serverObserver()
	if err != nil {
		return err
	}

	kc, err := kernelConfig()
	if err != nil {
		return err
	}
	var opts []kernel.Option
	if len(kc.Observers) == 0 {
		opts = append(opts, kernel.WithObserver(observer))
	}

	k, err := newKernel(kc, opts...)
	if err != nil {
		return err
	}

	srv := runtime.New(k, runtime.WithAppName(cfg.AppName), runtime.WithObserver(observer))
	return listen(ctx, "runtime", cfg.RuntimeAddr, srv.Handler())
}

// newKernel builds a kernel with the lookup tools registered.
func newKernel(kc *kernel.Config, opts ...kernel.Option) (*kernel.Kernel, error) {
	if err := registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	k, err := kernel.New(kc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kernel: %w", err)
	}
	return k, nil
}
