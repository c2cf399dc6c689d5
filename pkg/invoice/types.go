// Package invoice defines the data model shared across the extraction engine:
// raw documents, extraction attempts and results, fields, line items,
// validation issues, and the InvoiceExtraction aggregate handed to the
// surrounding workflow.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind classifies a PDF by how its text is exposed.
type DocumentKind string

const (
	KindDigital    DocumentKind = "digital"
	KindScanned    DocumentKind = "scanned"
	KindHybrid     DocumentKind = "hybrid"
	KindUnreadable DocumentKind = "unreadable"
)

// RawDocument is the immutable input supplied by the ingestion collaborator.
// The engine never fetches documents itself.
type RawDocument struct {
	Bytes       []byte
	Filename    string
	ContentType string
}

// Empty reports whether the document carries no payload at all.
func (d *RawDocument) Empty() bool {
	return len(d.Bytes) == 0
}

// Classification is the outcome of document-type detection.
type Classification struct {
	Kind DocumentKind `json:"kind"`
	// CoverageRatio is the fraction of page area covered by an extractable
	// text layer, 0 if none.
	CoverageRatio float64 `json:"coverage_ratio"`
	PageCount     int     `json:"page_count"`
	HasImages     bool    `json:"has_images"`
}

// ExtractionAttempt records a single backend invocation. The coordinator
// keeps every attempt for diagnostics even when a later backend wins.
type ExtractionAttempt struct {
	Backend    string        `json:"backend"`
	Text       string        `json:"-"`
	Confidence float64       `json:"confidence"`
	Succeeded  bool          `json:"succeeded"`
	Elapsed    time.Duration `json:"elapsed_ms"`
	Err        string        `json:"error,omitempty"`
}

// ExtractionStatus tags the coordinator's final result.
type ExtractionStatus string

const (
	StatusExtracted                ExtractionStatus = "extracted"
	StatusRequiresManualExtraction ExtractionStatus = "requires_manual_extraction"
)

// ExtractionResult is the single chosen raw-text result exposed downstream.
type ExtractionResult struct {
	Text       string           `json:"-"`
	Method     string           `json:"method"`
	Confidence float64          `json:"confidence"`
	Status     ExtractionStatus `json:"status"`
}

// RegionKind identifies a document region used to scope pattern search.
type RegionKind string

const (
	RegionHeader    RegionKind = "header"
	RegionMetadata  RegionKind = "metadata"
	RegionLineItems RegionKind = "line_items"
	RegionFooter    RegionKind = "footer"
)

// TextRegion is a half-open line range [StartLine, EndLine) of the raw text.
// Regions never overlap and appear in header < metadata < line_items < footer
// order; an undetectable region is empty (StartLine == EndLine).
type TextRegion struct {
	Kind      RegionKind `json:"kind"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
}

// Empty reports whether the region could not be detected.
func (r TextRegion) Empty() bool { return r.StartLine >= r.EndLine }

// Contains reports whether the zero-based line index falls inside the region.
func (r TextRegion) Contains(line int) bool {
	return line >= r.StartLine && line < r.EndLine
}

// Canonical field names produced by the field extractor.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldDueDate       = "due_date"
	FieldTotalAmount   = "total_amount"
	FieldSubtotal      = "subtotal"
	FieldTaxAmount     = "tax_amount"
	FieldVendorName    = "vendor_name"
	FieldPurchaseOrder = "purchase_order"
	FieldCurrency      = "currency"
)

// ExpectedFields lists the fields the confidence calculator counts toward
// completeness, in canonical order.
func ExpectedFields() []string {
	return []string{
		FieldInvoiceNumber,
		FieldInvoiceDate,
		FieldDueDate,
		FieldTotalAmount,
		FieldSubtotal,
		FieldTaxAmount,
		FieldVendorName,
	}
}

// ExtractedField is one located field value with its provenance.
type ExtractedField struct {
	Name       string     `json:"name"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	PatternID  string     `json:"pattern_id"`
	SourceLine int        `json:"source_line"`
	Region     RegionKind `json:"region"`
	// FormatValid records whether the value passed type-specific format
	// validation (date parses, amount is a positive decimal).
	FormatValid bool `json:"format_valid"`
}

// LineItem is one parsed table row. Numeric fields are optional because
// partial rows are common and must not invalidate the whole table.
type LineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal   *decimal.Decimal `json:"line_total,omitempty"`
}

// IssueKind separates blocking validation errors from advisory warnings.
type IssueKind string

const (
	IssueError   IssueKind = "error"
	IssueWarning IssueKind = "warning"
)

// Validation issue codes.
const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeNonPositiveAmount    = "NON_POSITIVE_AMOUNT"
	CodeUnusualInvoiceNumber = "UNUSUAL_INVOICE_NUMBER"
	CodeDueBeforeInvoiceDate = "DUE_BEFORE_INVOICE_DATE"
	CodeDuplicateInvoice     = "DUPLICATE_INVOICE"
	CodeUnparsableDate       = "UNPARSABLE_DATE"
)

// ValidationIssue is a single rule outcome. Any error-kind issue forces the
// routing decision to ManualCorrection regardless of confidence.
type ValidationIssue struct {
	Field   string    `json:"field,omitempty"`
	Kind    IssueKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Suggested carries a derivable corrected value, e.g. a normalized
	// invoice number.
	Suggested string `json:"suggested,omitempty"`
}

// HasErrors reports whether any issue in the list is blocking.
func HasErrors(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Kind == IssueError {
			return true
		}
	}
	return false
}

// ProcessingDecision is the terminal routing outcome for this engine.
type ProcessingDecision string

const (
	DecisionAutoApprove      ProcessingDecision = "auto_approve"
	DecisionManualReview     ProcessingDecision = "manual_review"
	DecisionManualCorrection ProcessingDecision = "manual_correction"
)

// TrustRank orders decisions by how much automation they permit; higher is
// more trusted. Used by router monotonicity checks.
func (d ProcessingDecision) TrustRank() int {
	switch d {
	case DecisionAutoApprove:
		return 2
	case DecisionManualReview:
		return 1
	default:
		return 0
	}
}

// ConfidenceBreakdown exposes the weighted components behind the overall
// score for the diagnostic trace.
type ConfidenceBreakdown struct {
	Extraction       float64 `json:"extraction"`
	FieldScore       float64 `json:"field_score"`
	TemplateMatch    float64 `json:"template_match"`
	CrossConsistency float64 `json:"cross_consistency"`
	Overall          float64 `json:"overall"`
}

// Diagnostics is the operator-facing trace of one run: every backend
// attempt, per-field provenance, and the confidence breakdown.
type Diagnostics struct {
	RunID          string              `json:"run_id"`
	Classification Classification      `json:"classification"`
	Attempts       []ExtractionAttempt `json:"attempts"`
	Regions        []TextRegion        `json:"regions"`
	PatternVersion string              `json:"pattern_version"`
	TemplateName   string              `json:"template_name,omitempty"`
	Confidence     ConfidenceBreakdown `json:"confidence"`
	StageElapsed   map[string]int64    `json:"stage_elapsed_ms,omitempty"`
}

// InvoiceExtraction is the aggregate produced once per document. It is
// immutable after validation and routing; the engine hands it to the
// persistence/workflow collaborator as-is.
type InvoiceExtraction struct {
	RunID       string             `json:"run_id"`
	Filename    string             `json:"filename"`
	Fields      []ExtractedField   `json:"fields"`
	LineItems   []LineItem         `json:"line_items"`
	Extraction  ExtractionResult   `json:"extraction"`
	Confidence  float64            `json:"confidence"`
	Issues      []ValidationIssue  `json:"issues"`
	Decision    ProcessingDecision `json:"decision"`
	ProcessedAt time.Time          `json:"processed_at"`
	Diagnostics Diagnostics        `json:"diagnostics"`
}

// Field returns the extracted field by canonical name, or nil.
func (x *InvoiceExtraction) Field(name string) *ExtractedField {
	for i := range x.Fields {
		if x.Fields[i].Name == name {
			return &x.Fields[i]
		}
	}
	return nil
}

// FieldValue returns the raw string value for a field, "" when absent.
func (x *InvoiceExtraction) FieldValue(name string) string {
	if f := x.Field(name); f != nil {
		return f.Value
	}
	return ""
}
