package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for extraction operations.
const TracerName = "paperglass"

// Span attribute keys
const (
	AttrRunID           = "run_id"
	AttrDocumentID      = "document_id"
	AttrDocumentKind    = "document_kind"
	AttrBackend         = "backend"
	AttrStage           = "stage"
	AttrDurationMs      = "duration_ms"
	AttrConfidence      = "confidence"
	AttrDecision        = "decision"
	AttrTemplateName    = "template_name"
	AttrPatternVersion  = "pattern_version"
	AttrFieldsFound     = "fields_found"
	AttrLineItems       = "line_items"
	AttrErrorType       = "error_type"
)

// Span names
const (
	SpanProcessDocument = "paperglass.process_document"
	SpanStageClassify   = "paperglass.stage.classification"
	SpanStageExtract    = "paperglass.stage.extraction"
	SpanStageFields     = "paperglass.stage.fields"
	SpanStageLineItems  = "paperglass.stage.line_items"
	SpanStageConfidence = "paperglass.stage.confidence"
	SpanStageValidate   = "paperglass.stage.validation"
	SpanStageRoute      = "paperglass.stage.routing"
	SpanBackendAttempt  = "paperglass.backend_attempt"
)

// Tracer provides distributed tracing for pipeline operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new pipeline tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartDocumentSpan starts a root span for processing a document.
func (t *Tracer) StartDocumentSpan(ctx context.Context, runID, documentID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, SpanProcessDocument,
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
		),
	)
	if documentID != "" {
		span.SetAttributes(attribute.String(AttrDocumentID, documentID))
	}
	return ctx, span
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("paperglass.stage.%s", stage),
		trace.WithAttributes(
			attribute.String(AttrStage, stage),
		),
	)
}

// StartBackendSpan starts a span for one extraction backend attempt.
func (t *Tracer) StartBackendSpan(ctx context.Context, backend string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanBackendAttempt,
		trace.WithAttributes(
			attribute.String(AttrBackend, backend),
		),
	)
}

// SpanHelper provides convenient methods for working with the current span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetClassification sets classification attributes on the span.
func (h *SpanHelper) SetClassification(kind string, coverage float64) {
	h.span.SetAttributes(
		attribute.String(AttrDocumentKind, kind),
		attribute.Float64("text_coverage", coverage),
	)
}

// SetExtraction sets extraction outcome attributes.
func (h *SpanHelper) SetExtraction(backend string, confidence float64) {
	h.span.SetAttributes(
		attribute.String(AttrBackend, backend),
		attribute.Float64(AttrConfidence, confidence),
	)
}

// SetFields sets field extraction attributes.
func (h *SpanHelper) SetFields(found, lineItems int, patternVersion string) {
	h.span.SetAttributes(
		attribute.Int(AttrFieldsFound, found),
		attribute.Int(AttrLineItems, lineItems),
	)
	if patternVersion != "" {
		h.span.SetAttributes(attribute.String(AttrPatternVersion, patternVersion))
	}
}

// SetTemplate sets the matched template name.
func (h *SpanHelper) SetTemplate(name string) {
	if name != "" {
		h.span.SetAttributes(attribute.String(AttrTemplateName, name))
	}
}

// SetOutcome sets the final confidence and routing decision.
func (h *SpanHelper) SetOutcome(confidence float64, decision string) {
	h.span.SetAttributes(
		attribute.Float64(AttrConfidence, confidence),
		attribute.String(AttrDecision, decision),
	)
}

// SetDuration sets the duration attribute.
func (h *SpanHelper) SetDuration(durationMs int64) {
	h.span.SetAttributes(attribute.Int64(AttrDurationMs, durationMs))
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, errorType string) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(attribute.String(AttrErrorType, errorType))
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}
