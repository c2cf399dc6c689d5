package backends

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// FastStructured extracts the embedded text layer of a digital PDF. It is
// the cheapest backend and runs first for digital and hybrid documents.
type FastStructured struct {
	logger logging.Logger
}

var _ TextExtractor = (*FastStructured)(nil)

func NewFastStructured(logger logging.Logger) *FastStructured {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FastStructured{logger: logger}
}

func (f *FastStructured) Name() string { return NameFastStructured }

func (f *FastStructured) Extract(ctx context.Context, doc invoice.RawDocument) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if doc.Empty() {
		return Result{}, fmt.Errorf("%s: empty document", NameFastStructured)
	}

	r, err := pdf.NewReader(bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)))
	if err != nil {
		return Result{}, fmt.Errorf("%s: open pdf: %w", NameFastStructured, err)
	}

	var sb strings.Builder
	var warnings []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	text := normalizeText(sb.String())
	conf := heuristicConfidence(text)

	f.logger.Debug("fast structured extraction done",
		logging.F("filename", doc.Filename),
		logging.F("chars", len(text)),
		logging.F("confidence", conf))

	return Result{
		Text:       text,
		Confidence: conf,
		Succeeded:  text != "",
		Warnings:   warnings,
	}, nil
}
