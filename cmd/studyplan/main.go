// Command studyplan runs the study planner: the agent runtime that hosts the
// planner, researcher and academic pipeline, the multi-user web service in
// front of it, and a local one-shot runner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/tailored-agentic-units/studyplan/agent/gemini"
	_ "github.com/tailored-agentic-units/studyplan/agent/mock"
)

var rootCmd = &cobra.Command{
	Use:           "studyplan",
	Short:         "Multi-agent study planner",
	Long:          `Turns a topic into a study plan through a planner, a researcher with paper and video lookups, and an academic coordinator.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(cmd); err != nil {
			return err
		}
		setupLogger(os.Stderr)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("env-file", ".env", "Optional KEY=value file read before the environment")
	pf.String("config", "", "Kernel config file (JSON or YAML)")
	pf.Bool("verbose", false, "Enable debug logging")
	pf.String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(serveCmd, runtimeCmd, runCmd, keysCmd, instructionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
