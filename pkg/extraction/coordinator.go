// Package extraction runs the ensemble of text-extraction backends with
// fallback ordering. The coordinator owns backend selection, per-backend
// timeouts, and the accept-or-fall-through decision; extraction failure is
// data, never a fatal error.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paperglass/paperglass/pkg/extraction/backends"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// DefaultAcceptConfidence is the minimum backend confidence accepted
// without trying the next backend.
const DefaultAcceptConfidence = 0.5

// Coordinator selects and invokes backends in kind-specific order.
type Coordinator struct {
	fast   backends.TextExtractor
	layout backends.TextExtractor
	ocr    backends.TextExtractor

	acceptConfidence float64
	backendTimeout   time.Duration
	ocrTimeout       time.Duration
	logger           logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAcceptConfidence overrides the acceptance cutoff.
func WithAcceptConfidence(v float64) Option {
	return func(c *Coordinator) { c.acceptConfidence = v }
}

// WithTimeouts sets the per-backend timeouts. The OCR backend gets its own
// budget because it rasterizes and shells out.
func WithTimeouts(backend, ocr time.Duration) Option {
	return func(c *Coordinator) {
		c.backendTimeout = backend
		c.ocrTimeout = ocr
	}
}

// NewCoordinator wires the three backends into a coordinator.
func NewCoordinator(fast, layout, ocr backends.TextExtractor, logger logging.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Coordinator{
		fast:             fast,
		layout:           layout,
		ocr:              ocr,
		acceptConfidence: DefaultAcceptConfidence,
		backendTimeout:   30 * time.Second,
		ocrTimeout:       2 * time.Minute,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// order returns the backend fallback list for a document kind.
func (c *Coordinator) order(kind invoice.DocumentKind) []backends.TextExtractor {
	switch kind {
	case invoice.KindDigital:
		return []backends.TextExtractor{c.fast, c.layout}
	case invoice.KindScanned:
		return []backends.TextExtractor{c.ocr}
	case invoice.KindHybrid:
		return []backends.TextExtractor{c.fast, c.layout, c.ocr}
	default:
		return nil
	}
}

// Extract invokes backends in order until one is accepted. Every attempt is
// returned for diagnostics. When no backend is accepted, the result carries
// the highest-confidence attempt's text tagged RequiresManualExtraction so
// the pipeline still produces a record for triage.
func (c *Coordinator) Extract(ctx context.Context, doc invoice.RawDocument, kind invoice.DocumentKind) (invoice.ExtractionResult, []invoice.ExtractionAttempt, error) {
	order := c.order(kind)
	if len(order) == 0 {
		return invoice.ExtractionResult{}, nil,
			fmt.Errorf("no extraction backends for document kind %q", kind)
	}

	attempts := make([]invoice.ExtractionAttempt, 0, len(order))
	for _, backend := range order {
		if err := ctx.Err(); err != nil {
			return invoice.ExtractionResult{}, attempts, err
		}

		attempt := c.runBackend(ctx, backend, doc)
		attempts = append(attempts, attempt)

		if attempt.Succeeded && attempt.Confidence >= c.acceptConfidence {
			c.logger.Info("extraction backend accepted",
				logging.F("filename", doc.Filename),
				logging.F("backend", attempt.Backend),
				logging.F("confidence", attempt.Confidence),
				logging.F("attempts", len(attempts)))
			return invoice.ExtractionResult{
				Text:       attempt.Text,
				Method:     attempt.Backend,
				Confidence: attempt.Confidence,
				Status:     invoice.StatusExtracted,
			}, attempts, nil
		}

		c.logger.Warn("extraction backend rejected",
			logging.F("filename", doc.Filename),
			logging.F("backend", attempt.Backend),
			logging.F("confidence", attempt.Confidence),
			logging.F("succeeded", attempt.Succeeded))
	}

	best := bestAttempt(attempts)
	c.logger.Warn("all extraction backends rejected",
		logging.F("filename", doc.Filename),
		logging.F("best_backend", best.Backend),
		logging.F("best_confidence", best.Confidence))

	return invoice.ExtractionResult{
		Text:       best.Text,
		Method:     best.Backend,
		Confidence: best.Confidence,
		Status:     invoice.StatusRequiresManualExtraction,
	}, attempts, nil
}

// runBackend invokes one backend under its timeout. A timeout counts as a
// failed attempt for that backend only; the fallback chain continues.
func (c *Coordinator) runBackend(ctx context.Context, backend backends.TextExtractor, doc invoice.RawDocument) invoice.ExtractionAttempt {
	timeout := c.backendTimeout
	if backend.Name() == backends.NameOCR {
		timeout = c.ocrTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := backend.Extract(callCtx, doc)
	elapsed := time.Since(start)

	attempt := invoice.ExtractionAttempt{
		Backend:    backend.Name(),
		Text:       res.Text,
		Confidence: res.Confidence,
		Succeeded:  res.Succeeded && err == nil,
		Elapsed:    elapsed,
	}
	if err != nil {
		attempt.Succeeded = false
		if errors.Is(err, context.DeadlineExceeded) {
			attempt.Err = fmt.Sprintf("timeout after %s", timeout)
		} else {
			attempt.Err = err.Error()
		}
	}
	return attempt
}

// bestAttempt picks the highest-confidence attempt; ties keep the earlier
// backend, matching the fallback preference order.
func bestAttempt(attempts []invoice.ExtractionAttempt) invoice.ExtractionAttempt {
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Confidence > best.Confidence {
			best = a
		}
	}
	return best
}
