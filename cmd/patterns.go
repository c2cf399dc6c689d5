package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/pkg/patterns"
)

// NewPatternsCommand manages the field pattern library.
func NewPatternsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and validate field pattern files",
	}
	cmd.AddCommand(newPatternsCheckCommand())
	cmd.AddCommand(newPatternsListCommand())
	return cmd
}

func newPatternsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.yaml>",
		Short: "Compile a pattern file and report errors",
		Long: `Parse and compile every pattern in the file. Exits non-zero when any
regular expression fails to compile or a pattern lacks a capture group.

Example:
  paperglass patterns check ./patterns.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := patterns.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d patterns ok (version %s)\n",
				args[0], snap.Len(), snap.Version)
			return nil
		},
	}
}

func newPatternsListCommand() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the built-in patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := patterns.DefaultSnapshot()
			out := cmd.OutOrStdout()

			if outputJSON {
				return printJSON(out, snap.All())
			}
			for _, field := range snap.Fields() {
				fmt.Fprintf(out, "%s\n", field)
				for _, p := range snap.ForField(field) {
					fmt.Fprintf(out, "  %-24s priority=%-3d weight=%.2f  %s\n",
						p.ID, p.Priority, p.ConfidenceWeight, p.Regex)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output JSON instead of text")
	return cmd
}
