package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// LayoutPreserving shells out to pdftotext with layout mode enabled, which
// keeps the column alignment the table parser depends on. It runs second
// for digital and hybrid documents, when the fast backend's output was
// rejected.
type LayoutPreserving struct {
	cfg    config.OCRConfig
	runner Runner
	logger logging.Logger
}

var _ TextExtractor = (*LayoutPreserving)(nil)

func NewLayoutPreserving(cfg config.OCRConfig, runner Runner, logger logging.Logger) *LayoutPreserving {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if runner == nil {
		runner = &ExecRunner{Logger: logger}
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &LayoutPreserving{cfg: cfg, runner: runner, logger: logger}
}

func (l *LayoutPreserving) Name() string { return NameLayoutPreserving }

func (l *LayoutPreserving) Extract(ctx context.Context, doc invoice.RawDocument) (Result, error) {
	if doc.Empty() {
		return Result{}, fmt.Errorf("%s: empty document", NameLayoutPreserving)
	}

	path, cleanup, err := writeTempPDF(doc.Bytes)
	if err != nil {
		return Result{}, fmt.Errorf("%s: temp file: %w", NameLayoutPreserving, err)
	}
	defer cleanup()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := l.runner.Run(ctx, l.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{Warnings: []string{string(errb)}},
			fmt.Errorf("%s: pdftotext: %w", NameLayoutPreserving, err)
	}

	// pdftotext separates pages with form feeds.
	text := normalizeText(strings.ReplaceAll(string(out), "\f", "\n\n"))
	conf := heuristicConfidence(text)

	l.logger.Debug("layout preserving extraction done",
		logging.F("filename", doc.Filename),
		logging.F("chars", len(text)),
		logging.F("confidence", conf))

	return Result{
		Text:       text,
		Confidence: conf,
		Succeeded:  text != "",
	}, nil
}
