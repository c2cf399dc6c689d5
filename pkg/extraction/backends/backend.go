// Package backends provides the interchangeable text-extraction backends
// behind the extraction coordinator: a fast structured-text extractor for
// digital PDFs, a layout-preserving extractor for columnar layouts, and an
// image-based OCR extractor for scanned content.
package backends

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/paperglass/paperglass/pkg/invoice"
)

// Backend names, recorded in ExtractionAttempt.Backend and the final
// ExtractionResult.Method.
const (
	NameFastStructured   = "fast_structured"
	NameLayoutPreserving = "layout_preserving"
	NameOCR              = "ocr"
)

// Result is a single backend's output: extracted text plus an intrinsic
// confidence estimate and a success flag.
type Result struct {
	Text       string
	Confidence float64
	Succeeded  bool
	Warnings   []string
}

// TextExtractor is the capability all backends implement. Extract never
// panics on bad input; a failed extraction returns Succeeded=false (and
// optionally an error describing why).
type TextExtractor interface {
	Name() string
	Extract(ctx context.Context, doc invoice.RawDocument) (Result, error)
}

// normalizeText canonicalizes extracted text: NFC normalization, uniform
// line endings, stripped trailing whitespace per line.
func normalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
