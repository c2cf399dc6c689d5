package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the extraction pipeline.
type PipelineMetrics struct {
	// Document metrics
	DocumentsTotal    *prometheus.CounterVec
	PipelineSeconds   *prometheus.HistogramVec
	StageSeconds      *prometheus.HistogramVec
	DecisionsTotal    *prometheus.CounterVec

	// Extraction metrics
	BackendAttemptsTotal *prometheus.CounterVec
	BackendSeconds       *prometheus.HistogramVec
	OverallConfidence    *prometheus.HistogramVec

	// Field metrics
	FieldsFoundTotal    *prometheus.CounterVec
	TemplateMatchTotal  *prometheus.CounterVec
	ValidationIssues    *prometheus.CounterVec

	// Queue metrics
	QueueItemsTotal *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
	DLQItemsTotal   *prometheus.CounterVec
}

// DefaultPipelineMetrics creates metrics registered on the default registerer.
func DefaultPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetrics(prometheus.DefaultRegisterer)
}

// NewPipelineMetrics creates a new set of pipeline metrics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_documents_total",
				Help: "Total documents processed by kind and status",
			},
			[]string{"kind", "status"},
		),
		PipelineSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperglass_pipeline_seconds",
				Help:    "End-to-end processing latency per document",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperglass_stage_seconds",
				Help:    "Processing latency per pipeline stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"stage"},
		),
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_decisions_total",
				Help: "Total routing decisions",
			},
			[]string{"decision"},
		),
		BackendAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_backend_attempts_total",
				Help: "Total extraction backend attempts by outcome",
			},
			[]string{"backend", "outcome"},
		),
		BackendSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperglass_backend_seconds",
				Help:    "Extraction backend latency",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"backend"},
		),
		OverallConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperglass_overall_confidence",
				Help:    "Overall confidence scores per processed document",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
			[]string{"kind"},
		),
		FieldsFoundTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_fields_found_total",
				Help: "Total field extractions by field name",
			},
			[]string{"field", "region"},
		),
		TemplateMatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_template_matches_total",
				Help: "Total vendor template match outcomes",
			},
			[]string{"template", "outcome"},
		),
		ValidationIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_validation_issues_total",
				Help: "Total validation issues by code and severity",
			},
			[]string{"code", "severity"},
		),
		QueueItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_queue_items_total",
				Help: "Total items entering each queue",
			},
			[]string{"queue"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paperglass_queue_depth",
				Help: "Current queue depth",
			},
			[]string{"queue"},
		),
		DLQItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperglass_dlq_items_total",
				Help: "Total items moved to the dead letter queue",
			},
			[]string{"queue", "error_type"},
		),
	}
}

// RecordDocument records a processed document.
func (m *PipelineMetrics) RecordDocument(kind, status string, seconds float64) {
	m.DocumentsTotal.WithLabelValues(kind, status).Inc()
	m.PipelineSeconds.WithLabelValues(kind).Observe(seconds)
}

// RecordStage records stage latency.
func (m *PipelineMetrics) RecordStage(stage string, seconds float64) {
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordDecision records a routing decision.
func (m *PipelineMetrics) RecordDecision(decision string) {
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordBackendAttempt records one extraction backend attempt.
func (m *PipelineMetrics) RecordBackendAttempt(backend, outcome string, seconds float64) {
	m.BackendAttemptsTotal.WithLabelValues(backend, outcome).Inc()
	m.BackendSeconds.WithLabelValues(backend).Observe(seconds)
}

// RecordConfidence records an overall confidence score.
func (m *PipelineMetrics) RecordConfidence(kind string, score float64) {
	m.OverallConfidence.WithLabelValues(kind).Observe(score)
}

// RecordField records a successful field extraction.
func (m *PipelineMetrics) RecordField(field, region string) {
	m.FieldsFoundTotal.WithLabelValues(field, region).Inc()
}

// RecordTemplateMatch records a vendor template outcome.
func (m *PipelineMetrics) RecordTemplateMatch(template, outcome string) {
	m.TemplateMatchTotal.WithLabelValues(template, outcome).Inc()
}

// RecordValidationIssue records one validation issue.
func (m *PipelineMetrics) RecordValidationIssue(code, severity string) {
	m.ValidationIssues.WithLabelValues(code, severity).Inc()
}

// RecordQueueEnqueue records an item entering a queue.
func (m *PipelineMetrics) RecordQueueEnqueue(queue string) {
	m.QueueItemsTotal.WithLabelValues(queue).Inc()
}

// RecordQueueDepth sets the current queue depth.
func (m *PipelineMetrics) RecordQueueDepth(queue string, depth float64) {
	m.QueueDepth.WithLabelValues(queue).Set(depth)
}

// RecordDLQItem records an item moved to the dead letter queue.
func (m *PipelineMetrics) RecordDLQItem(queue, errorType string) {
	m.DLQItemsTotal.WithLabelValues(queue, errorType).Inc()
}
