// Package pipeline composes the extraction stages into a single engine:
// classification, backend extraction, region segmentation, field and
// line-item extraction, template matching, confidence scoring, validation,
// and review routing. One call to Process produces one immutable
// InvoiceExtraction aggregate with a full diagnostic trace.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/confidence"
	"github.com/paperglass/paperglass/pkg/document"
	pgerrors "github.com/paperglass/paperglass/pkg/errors"
	"github.com/paperglass/paperglass/pkg/extraction"
	"github.com/paperglass/paperglass/pkg/extraction/backends"
	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/lineitems"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/observability"
	"github.com/paperglass/paperglass/pkg/patterns"
	"github.com/paperglass/paperglass/pkg/regions"
	"github.com/paperglass/paperglass/pkg/review"
	"github.com/paperglass/paperglass/pkg/templates"
	"github.com/paperglass/paperglass/pkg/validate"
)

// Pipeline stage names used in diagnostics, metrics, and spans.
const (
	StageClassification = "classification"
	StageExtraction     = "extraction"
	StageSegmentation   = "segmentation"
	StageFields         = "fields"
	StageLineItems      = "line_items"
	StageConfidence     = "confidence"
	StageValidation     = "validation"
	StageRouting        = "routing"
)

// Classifier decides how a raw document exposes its text.
type Classifier interface {
	Classify(ctx context.Context, doc invoice.RawDocument) (invoice.Classification, error)
}

// Extractor runs the backend chain for a classified document.
type Extractor interface {
	Extract(ctx context.Context, doc invoice.RawDocument, kind invoice.DocumentKind) (invoice.ExtractionResult, []invoice.ExtractionAttempt, error)
}

// Engine ties the stages together. Construct with New; zero value is not
// usable.
type Engine struct {
	classifier Classifier
	extractor  Extractor
	fields     *fields.Extractor
	lineItems  *lineitems.Extractor
	templates  *templates.Matcher
	library    *patterns.Library
	calculator *confidence.Calculator
	validator  *validate.Validator
	router     *review.Router
	metrics    *observability.PipelineMetrics
	tracer     *observability.Tracer
	logger     logging.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier replaces the default PDF classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithExtractor replaces the default backend coordinator.
func WithExtractor(x Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithTemplates installs a vendor template matcher.
func WithTemplates(m *templates.Matcher) Option {
	return func(e *Engine) { e.templates = m }
}

// WithDuplicateChecker enables the duplicate validation rule.
func WithDuplicateChecker(d validate.DuplicateChecker) Option {
	return func(e *Engine) { e.validator = validate.New(d, e.logger) }
}

// WithMetrics installs a metrics sink. Without it the engine records nothing.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer installs a span tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine with the production stage implementations wired from
// cfg. The pattern library is required; templates and duplicate checking are
// optional collaborators.
func New(cfg *config.Config, library *patterns.Library, logger logging.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	if library == nil {
		return nil, fmt.Errorf("pipeline: nil pattern library")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	runner := &backends.ExecRunner{Logger: logger}
	coordinator := extraction.NewCoordinator(
		backends.NewFastStructured(logger),
		backends.NewLayoutPreserving(cfg.Extraction.OCR, runner, logger),
		backends.NewOCR(cfg.Extraction.OCR, runner, logger),
		logger,
		extraction.WithAcceptConfidence(cfg.Thresholds.AcceptConfidence),
		extraction.WithTimeouts(cfg.Extraction.BackendTimeout, cfg.Extraction.OCRTimeout),
	)

	e := &Engine{
		classifier: document.NewClassifier(logger),
		extractor:  coordinator,
		fields:     fields.NewExtractor(logger),
		lineItems:  lineitems.NewExtractor(logger),
		library:    library,
		calculator: confidence.NewCalculator(cfg.Weights, cfg.Thresholds.ConsistencyTolerance, logger),
		validator:  validate.New(nil, logger),
		router:     review.NewRouter(cfg.Thresholds, logger),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Process runs every stage for one document and returns the aggregate.
// Empty input, an unreadable document, and a cancelled context are hard
// failures: nil aggregate, non-nil error. Failed extraction is not; it
// yields an aggregate routed to manual correction.
func (e *Engine) Process(ctx context.Context, doc invoice.RawDocument) (*invoice.InvoiceExtraction, error) {
	runID := uuid.NewString()
	started := e.now()
	elapsed := map[string]int64{}

	log := e.logger.With(logging.F("run_id", runID), logging.F("filename", doc.Filename))

	var rootSpan *observability.SpanHelper
	if e.tracer != nil {
		spanCtx, s := e.tracer.StartDocumentSpan(ctx, runID, doc.Filename)
		ctx = spanCtx
		defer s.End()
		rootSpan = observability.NewSpanHelper(s)
	}

	if doc.Empty() {
		err := pgerrors.Classify(pgerrors.ErrEmptyDocument, StageClassification)
		if rootSpan != nil {
			rootSpan.SetError(err, string(err.Code))
		}
		return nil, err
	}

	// Classification
	cls, err := e.stageClassify(ctx, doc, elapsed)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}
	if rootSpan != nil {
		rootSpan.SetClassification(string(cls.Kind), cls.CoverageRatio)
	}
	if cls.Kind == invoice.KindUnreadable {
		// Terminal: no backend runs and the caller gets the failure.
		if err == nil {
			err = pgerrors.ErrUnreadableDocument
		}
		perr := pgerrors.Classify(err, StageClassification)
		if e.metrics != nil {
			e.metrics.RecordDocument(string(cls.Kind), "rejected", e.now().Sub(started).Seconds())
		}
		if rootSpan != nil {
			rootSpan.SetError(perr, string(perr.Code))
		}
		log.Warn("document unreadable", logging.Err(perr))
		return nil, perr
	}
	if err != nil {
		// Parseable but oddly classified: degrade, do not abort.
		log.Warn("classification degraded", logging.Err(err))
	}

	// Backend extraction
	result, attempts, err := e.stageExtract(ctx, doc, cls.Kind, elapsed)
	if err != nil {
		if rootSpan != nil {
			rootSpan.SetError(err, "extraction")
		}
		return nil, err
	}

	// Segmentation
	segStart := e.now()
	regs := regions.Segment(result.Text)
	e.observeStage(StageSegmentation, segStart, elapsed)

	// Field extraction and template matching
	snap := e.library.Current()
	fieldStart := e.now()
	found := e.fields.ExtractAll(result.Text, regs, snap)

	templateName := ""
	templateScore := 0.0
	templateMatched := false
	if e.templates != nil {
		if match, ok := e.templates.Match(result.Text, regs); ok {
			found = templates.Apply(found, match)
			templateName = match.Name
			templateScore = match.Score
			templateMatched = true
		}
	}
	e.observeStage(StageFields, fieldStart, elapsed)

	// Line items
	itemStart := e.now()
	items := e.lineItems.Extract(result.Text)
	e.observeStage(StageLineItems, itemStart, elapsed)

	// Confidence
	confStart := e.now()
	breakdown := e.calculator.Score(confidence.Input{
		ExtractionConfidence: result.Confidence,
		Fields:               found,
		LineItems:            items,
		TemplateScore:        templateScore,
		TemplateMatched:      templateMatched,
	})
	e.observeStage(StageConfidence, confStart, elapsed)

	// Validation
	valStart := e.now()
	issues := e.validator.Validate(ctx, found)
	e.observeStage(StageValidation, valStart, elapsed)

	// Routing
	routeStart := e.now()
	decision := e.router.Route(breakdown.Overall, issues)
	e.observeStage(StageRouting, routeStart, elapsed)

	x := &invoice.InvoiceExtraction{
		RunID:       runID,
		Filename:    doc.Filename,
		Fields:      found,
		LineItems:   items,
		Extraction:  result,
		Confidence:  breakdown.Overall,
		Issues:      issues,
		Decision:    decision,
		ProcessedAt: e.now().UTC(),
		Diagnostics: invoice.Diagnostics{
			RunID:          runID,
			Classification: cls,
			Attempts:       attempts,
			Regions:        regs,
			PatternVersion: snap.Version,
			TemplateName:   templateName,
			Confidence:     breakdown,
			StageElapsed:   elapsed,
		},
	}

	e.record(x, started)
	if rootSpan != nil {
		rootSpan.SetFields(len(found), len(items), snap.Version)
		rootSpan.SetTemplate(templateName)
		rootSpan.SetOutcome(breakdown.Overall, string(decision))
		rootSpan.SetSuccess()
	}
	log.Info("document processed",
		logging.F("kind", string(cls.Kind)),
		logging.F("method", result.Method),
		logging.F("status", string(result.Status)),
		logging.F("fields", len(found)),
		logging.F("line_items", len(items)),
		logging.F("confidence", breakdown.Overall),
		logging.F("decision", string(decision)))
	return x, nil
}

func (e *Engine) stageClassify(ctx context.Context, doc invoice.RawDocument, elapsed map[string]int64) (invoice.Classification, error) {
	start := e.now()
	if e.tracer != nil {
		stageCtx, span := e.tracer.StartStageSpan(ctx, StageClassification)
		defer span.End()
		ctx = stageCtx
	}
	cls, err := e.classifier.Classify(ctx, doc)
	e.observeStage(StageClassification, start, elapsed)
	return cls, err
}

func (e *Engine) stageExtract(ctx context.Context, doc invoice.RawDocument, kind invoice.DocumentKind, elapsed map[string]int64) (invoice.ExtractionResult, []invoice.ExtractionAttempt, error) {
	start := e.now()
	if e.tracer != nil {
		stageCtx, span := e.tracer.StartStageSpan(ctx, StageExtraction)
		defer span.End()
		ctx = stageCtx
	}
	result, attempts, err := e.extractor.Extract(ctx, doc, kind)
	e.observeStage(StageExtraction, start, elapsed)
	if e.metrics != nil {
		for _, a := range attempts {
			outcome := "failed"
			if a.Succeeded {
				outcome = "succeeded"
			}
			e.metrics.RecordBackendAttempt(a.Backend, outcome, a.Elapsed.Seconds())
		}
	}
	return result, attempts, err
}

func (e *Engine) observeStage(stage string, start time.Time, elapsed map[string]int64) {
	d := e.now().Sub(start)
	elapsed[stage] = d.Milliseconds()
	if e.metrics != nil {
		e.metrics.RecordStage(stage, d.Seconds())
	}
}

func (e *Engine) record(x *invoice.InvoiceExtraction, started time.Time) {
	if e.metrics == nil {
		return
	}
	kind := string(x.Diagnostics.Classification.Kind)
	e.metrics.RecordDocument(kind, string(x.Extraction.Status), e.now().Sub(started).Seconds())
	e.metrics.RecordDecision(string(x.Decision))
	e.metrics.RecordConfidence(kind, x.Confidence)
	for _, f := range x.Fields {
		e.metrics.RecordField(f.Name, string(f.Region))
	}
	if x.Diagnostics.TemplateName != "" {
		e.metrics.RecordTemplateMatch(x.Diagnostics.TemplateName, "matched")
	}
	for _, is := range x.Issues {
		e.metrics.RecordValidationIssue(is.Code, string(is.Kind))
	}
}
