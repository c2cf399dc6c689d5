package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pgerrors "github.com/paperglass/paperglass/pkg/errors"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// NewProcessCommand runs the extraction pipeline on local PDF files.
func NewProcessCommand() *cobra.Command {
	var (
		trace      bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "process <file.pdf> [file.pdf ...]",
		Short: "Extract invoice data from PDF files",
		Long: `Run the full extraction pipeline on one or more PDF invoices:
classification, text extraction, field and line-item extraction,
confidence scoring, validation, and review routing.

Examples:
  paperglass process invoice.pdf
  paperglass process --trace invoice.pdf       Include the diagnostic trace
  paperglass process --json *.pdf              Machine-readable output`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			engine, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				x, err := engine.Process(cmd.Context(), invoice.RawDocument{
					Bytes:       data,
					Filename:    filepath.Base(path),
					ContentType: "application/pdf",
				})
				if err != nil {
					logger.Error("processing failed", logging.F("file", path), logging.Err(err))
					fmt.Fprintf(out, "%s\n  failed: %v\n", filepath.Base(path), err)
					if pe := pgerrors.Classify(err, ""); pe != nil {
						fmt.Fprintf(out, "  hint: %s\n", pgerrors.GetSuggestedAction(pe.Code))
					}
					failures++
					continue
				}

				if outputJSON {
					view := *x
					if !trace {
						view.Diagnostics = invoice.Diagnostics{RunID: x.RunID}
					}
					if err := printJSON(out, &view); err != nil {
						return err
					}
					continue
				}
				printExtraction(out, x, trace)
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d documents failed", failures, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "include the full diagnostic trace")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output JSON instead of text")
	return cmd
}

func printExtraction(out io.Writer, x *invoice.InvoiceExtraction, trace bool) {
	fmt.Fprintf(out, "%s\n", x.Filename)
	fmt.Fprintf(out, "  kind:       %s (coverage %.2f, %d pages)\n",
		x.Diagnostics.Classification.Kind,
		x.Diagnostics.Classification.CoverageRatio,
		x.Diagnostics.Classification.PageCount)
	fmt.Fprintf(out, "  extraction: %s via %s (%.2f)\n",
		x.Extraction.Status, x.Extraction.Method, x.Extraction.Confidence)

	for _, f := range x.Fields {
		marker := " "
		if !f.FormatValid {
			marker = "!"
		}
		fmt.Fprintf(out, "  %s %-16s %-24q %.2f  (%s, line %d)\n",
			marker, f.Name, f.Value, f.Confidence, f.Region, f.SourceLine)
	}
	if len(x.LineItems) > 0 {
		fmt.Fprintf(out, "  line items: %d\n", len(x.LineItems))
	}
	for _, is := range x.Issues {
		fmt.Fprintf(out, "  %s %s: %s\n", strings.ToUpper(string(is.Kind)), is.Code, is.Message)
	}
	fmt.Fprintf(out, "  confidence: %.2f  decision: %s\n", x.Confidence, x.Decision)

	if trace {
		fmt.Fprintf(out, "  trace:\n")
		fmt.Fprintf(out, "    run_id:   %s\n", x.RunID)
		fmt.Fprintf(out, "    patterns: %s\n", x.Diagnostics.PatternVersion)
		if x.Diagnostics.TemplateName != "" {
			fmt.Fprintf(out, "    template: %s\n", x.Diagnostics.TemplateName)
		}
		for _, a := range x.Diagnostics.Attempts {
			status := "failed"
			if a.Succeeded {
				status = "ok"
			}
			fmt.Fprintf(out, "    attempt:  %-18s %s conf=%.2f in %s %s\n",
				a.Backend, status, a.Confidence, a.Elapsed.Truncate(1e6), a.Err)
		}
		b := x.Diagnostics.Confidence
		fmt.Fprintf(out, "    scores:   extraction=%.2f fields=%.2f template=%.2f consistency=%.2f\n",
			b.Extraction, b.FieldScore, b.TemplateMatch, b.CrossConsistency)
		for stage, ms := range x.Diagnostics.StageElapsed {
			fmt.Fprintf(out, "    stage:    %-14s %dms\n", stage, ms)
		}
	}
}
