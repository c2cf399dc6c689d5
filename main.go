// Paperglass extracts structured invoice data from PDF documents.
//
// The pipeline classifies each document, runs an ensemble of extraction
// backends with fallback, pulls fields and line items out of the text,
// scores the result, and routes it for automatic approval or review.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/cmd"
	"github.com/paperglass/paperglass/pkg/buildinfo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paperglass",
		Short: "Invoice extraction and confidence engine",
		Long: `Paperglass turns invoice PDFs into structured data.

Documents are classified as digital, scanned, or hybrid, extracted with
the cheapest backend that produces a confident result, and scored across
extraction quality, field coverage, template match, and arithmetic
consistency. High-confidence invoices are auto-approved; everything else
is routed for human review or correction.

Run 'paperglass process' for one-off extraction, or 'paperglass worker'
with 'paperglass submit' for queue-driven batch processing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(
		cmd.NewProcessCommand(),
		cmd.NewClassifyCommand(),
		cmd.NewPatternsCommand(),
		cmd.NewWorkerCommand(),
		cmd.NewSubmitCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, args []string) {
			info := buildinfo.Get("paperglass")
			fmt.Fprintf(c.OutOrStdout(), "paperglass %s (go %s)\n", buildinfo.String(), info.GoVersion)
		},
	}
}
