package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.RecordDocument("digital", "extracted", 0.42)
	m.RecordStage("classification", 0.003)
	m.RecordDecision("auto_approve")
	m.RecordBackendAttempt("fast_structured", "accepted", 0.1)
	m.RecordConfidence("digital", 0.91)
	m.RecordField("invoice_number", "metadata")
	m.RecordTemplateMatch("acme", "matched")
	m.RecordValidationIssue("required_field_missing", "error")
	m.RecordQueueEnqueue("paperglass:documents")
	m.RecordQueueDepth("paperglass:documents", 3)
	m.RecordDLQItem("paperglass:documents", "backend_timeout")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"paperglass_documents_total",
		"paperglass_pipeline_seconds",
		"paperglass_stage_seconds",
		"paperglass_decisions_total",
		"paperglass_backend_attempts_total",
		"paperglass_backend_seconds",
		"paperglass_overall_confidence",
		"paperglass_fields_found_total",
		"paperglass_template_matches_total",
		"paperglass_validation_issues_total",
		"paperglass_queue_items_total",
		"paperglass_queue_depth",
		"paperglass_dlq_items_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestPipelineMetricsSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewPipelineMetrics(prometheus.NewRegistry())
	b := NewPipelineMetrics(prometheus.NewRegistry())

	a.RecordDecision("manual_review")
	b.RecordDecision("manual_review")
}

func TestTracerSpans(t *testing.T) {
	// Without an installed provider otel returns no-op spans; the helpers
	// must still be safe to call.
	tr := NewTracer()
	ctx := context.Background()

	ctx, root := tr.StartDocumentSpan(ctx, "run-1", "doc-1")
	defer root.End()

	ctx, stage := tr.StartStageSpan(ctx, "extraction")
	h := NewSpanHelper(stage)
	h.SetClassification("hybrid", 0.45)
	h.SetExtraction("ocr", 0.62)
	h.SetFields(5, 2, "v1")
	h.SetTemplate("acme")
	h.SetOutcome(0.74, "manual_review")
	h.SetDuration(120)
	h.AddEvent("backend_accepted")
	h.SetSuccess()
	stage.End()

	_, backend := tr.StartBackendSpan(ctx, "ocr")
	bh := NewSpanHelper(backend)
	bh.SetError(errors.New("tesseract exited 1"), "backend_failure")
	backend.End()
}
