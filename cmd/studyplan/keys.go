package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/studyplan/auth"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Print a fresh SECRET_KEY and ENCRYPTION_KEY for the env file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		secret, err := auth.GenerateKey()
		if err != nil {
			return err
		}
		encryption, err := auth.GenerateKey()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "SECRET_KEY=%s\n", secret)
		fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", encryption)
		return nil
	},
}
