// Package cmd implements the paperglass CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/patterns"
	"github.com/paperglass/paperglass/pkg/pipeline"
	"github.com/paperglass/paperglass/pkg/templates"
)

// loadConfig resolves the --config flag (persistent on the root command)
// and loads the engine configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// buildLogger creates the CLI logger from config plus the --verbose flag.
func buildLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	lc := cfg.Logging
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		lc.Level = logging.LevelDebug
	}
	return logging.NewLogger(&lc)
}

// buildLibrary loads the built-in patterns, extended by cfg.PatternFile.
func buildLibrary(cfg *config.Config, logger logging.Logger) (*patterns.Library, error) {
	snap := patterns.DefaultSnapshot()
	if cfg.PatternFile != "" {
		extra, err := patterns.LoadFile(cfg.PatternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file %s: %w", cfg.PatternFile, err)
		}
		overlay := make([]patterns.FieldPattern, 0, len(extra.All()))
		for _, p := range extra.All() {
			overlay = append(overlay, *p)
		}
		snap, err = patterns.Merge(extra.Version, patterns.DefaultPatterns(), overlay)
		if err != nil {
			return nil, fmt.Errorf("merging pattern file %s: %w", cfg.PatternFile, err)
		}
	}
	return patterns.NewLibrary(snap, logger)
}

// buildEngine wires a full pipeline engine from config, including vendor
// templates when configured.
func buildEngine(cfg *config.Config, logger logging.Logger, opts ...pipeline.Option) (*pipeline.Engine, error) {
	library, err := buildLibrary(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.TemplateFile != "" {
		tmpls, err := templates.LoadFile(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("loading template file %s: %w", cfg.TemplateFile, err)
		}
		matcher, err := templates.NewMatcher(tmpls, logger)
		if err != nil {
			return nil, fmt.Errorf("compiling templates: %w", err)
		}
		opts = append(opts, pipeline.WithTemplates(matcher))
	}

	return pipeline.New(cfg, library, logger, opts...)
}

// printJSON writes indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
