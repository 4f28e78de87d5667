// Package main is the clubpilot entrypoint: an HTTP service that drives a
// pooled headless browser against Club Virtual to log in, select a club
// and pull structured member data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clubpilot",
		Short:         "Club Virtual extraction service",
		Long:          "clubpilot serves an HTTP API that logs into Club Virtual with a pooled headless browser and extracts member data (profile, classes, specialties).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newExtractorsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "clubpilot v%s\n", version)
			return err
		},
	}
}
