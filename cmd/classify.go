package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/pkg/document"
	"github.com/paperglass/paperglass/pkg/invoice"
)

// NewClassifyCommand classifies PDFs without running extraction.
func NewClassifyCommand() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "classify <file.pdf> [file.pdf ...]",
		Short: "Classify PDFs as digital, scanned, hybrid, or unreadable",
		Long: `Decide how each PDF exposes its text without running any extraction
backend. Useful for sizing OCR capacity before a batch run.

Examples:
  paperglass classify invoice.pdf
  paperglass classify --json scans/*.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)
			classifier := document.NewClassifier(logger)
			out := cmd.OutOrStdout()

			type result struct {
				File string `json:"file"`
				invoice.Classification
				Error string `json:"error,omitempty"`
			}

			var results []result
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				r := result{File: filepath.Base(path)}
				cls, err := classifier.Classify(cmd.Context(), invoice.RawDocument{
					Bytes:    data,
					Filename: r.File,
				})
				r.Classification = cls
				if err != nil {
					r.Error = err.Error()
				}
				results = append(results, r)
			}

			if outputJSON {
				return printJSON(out, results)
			}
			for _, r := range results {
				fmt.Fprintf(out, "%-32s %-10s coverage=%.2f pages=%d images=%t",
					r.File, r.Kind, r.CoverageRatio, r.PageCount, r.HasImages)
				if r.Error != "" {
					fmt.Fprintf(out, "  (%s)", r.Error)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output JSON instead of text")
	return cmd
}
