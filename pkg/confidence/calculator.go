// Package confidence computes the overall confidence score for one
// extraction run from four weighted components: backend extraction
// confidence, field completeness and format validity, vendor template
// match, and cross-field consistency.
package confidence

import (
	"github.com/shopspring/decimal"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/lineitems"
	"github.com/paperglass/paperglass/pkg/logging"
)

// NeutralScore is the consistency starting point: checks with no data to
// compare leave it untouched, so absence of signal is neither reward nor
// penalty.
const NeutralScore = 0.5

// consistencyDelta is the bounded bonus (or penalty) per consistency check.
const consistencyDelta = 0.25

// Input gathers everything the calculator scores.
type Input struct {
	ExtractionConfidence float64
	Fields               []invoice.ExtractedField
	LineItems            []invoice.LineItem
	// TemplateScore is the winning template's score; ignored unless
	// TemplateMatched is set.
	TemplateScore   float64
	TemplateMatched bool
}

// Calculator applies configured weights and tolerance.
type Calculator struct {
	weights   config.Weights
	tolerance float64
	logger    logging.Logger
}

func NewCalculator(w config.Weights, tolerance float64, logger logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Calculator{weights: w, tolerance: tolerance, logger: logger}
}

// Score computes the weighted overall confidence and its breakdown.
func (c *Calculator) Score(in Input) invoice.ConfidenceBreakdown {
	b := invoice.ConfidenceBreakdown{
		Extraction:       clamp(in.ExtractionConfidence),
		FieldScore:       fieldScore(in.Fields),
		CrossConsistency: c.consistencyScore(in),
	}
	// No template match contributes nothing: generic extraction alone tops
	// out below the auto-approve threshold, which keeps unrecognized vendor
	// layouts in human review.
	if in.TemplateMatched {
		b.TemplateMatch = clamp(in.TemplateScore)
	}

	w := c.weights
	totalWeight := w.Extraction + w.Fields + w.Template + w.Consistency
	if totalWeight <= 0 {
		return b
	}
	b.Overall = (w.Extraction*b.Extraction +
		w.Fields*b.FieldScore +
		w.Template*b.TemplateMatch +
		w.Consistency*b.CrossConsistency) / totalWeight

	c.logger.Debug("confidence computed",
		logging.F("extraction", b.Extraction),
		logging.F("fields", b.FieldScore),
		logging.F("template", b.TemplateMatch),
		logging.F("consistency", b.CrossConsistency),
		logging.F("overall", b.Overall))
	return b
}

// fieldScore blends completeness (expected fields found) with format
// validity (found fields that parse cleanly).
func fieldScore(found []invoice.ExtractedField) float64 {
	expected := invoice.ExpectedFields()
	byName := make(map[string]invoice.ExtractedField, len(found))
	for _, f := range found {
		byName[f.Name] = f
	}

	foundCount := 0
	for _, name := range expected {
		if _, ok := byName[name]; ok {
			foundCount++
		}
	}
	completeness := float64(foundCount) / float64(len(expected))

	if len(found) == 0 {
		return 0
	}
	valid := 0
	for _, f := range found {
		if f.FormatValid {
			valid++
		}
	}
	formatFraction := float64(valid) / float64(len(found))

	return (completeness + formatFraction) / 2
}

// consistencyScore starts neutral and moves by a bounded delta per check:
// line-item totals against the subtotal, and due date against invoice
// date. Checks with missing data leave the score untouched.
func (c *Calculator) consistencyScore(in Input) float64 {
	score := NeutralScore

	if ok, checked := c.subtotalConsistent(in); checked {
		if ok {
			score += consistencyDelta
		} else {
			score -= consistencyDelta
		}
	}
	if ok, checked := datesConsistent(in.Fields); checked {
		if ok {
			score += consistencyDelta
		} else {
			score -= consistencyDelta
		}
	}
	return clamp(score)
}

// subtotalConsistent compares the line-item sum to the extracted subtotal
// within the relative tolerance. Returns checked=false when either side is
// missing.
func (c *Calculator) subtotalConsistent(in Input) (ok, checked bool) {
	sub := fieldValue(in.Fields, invoice.FieldSubtotal)
	if sub == "" || len(in.LineItems) == 0 {
		return false, false
	}
	subtotal, err := fields.ParseAmount(sub)
	if err != nil || subtotal.IsZero() {
		return false, false
	}
	sum := lineitems.Sum(in.LineItems)
	if sum.IsZero() {
		return false, false
	}

	diff := sum.Sub(subtotal).Abs()
	tolerance := subtotal.Abs().Mul(decimal.NewFromFloat(c.tolerance))
	return diff.LessThanOrEqual(tolerance), true
}

// datesConsistent checks dueDate >= invoiceDate when both parse.
func datesConsistent(found []invoice.ExtractedField) (ok, checked bool) {
	invStr := fieldValue(found, invoice.FieldInvoiceDate)
	dueStr := fieldValue(found, invoice.FieldDueDate)
	if invStr == "" || dueStr == "" {
		return false, false
	}
	invDate, err1 := fields.ParseDate(invStr, "")
	dueDate, err2 := fields.ParseDate(dueStr, "")
	if err1 != nil || err2 != nil {
		return false, false
	}
	return !dueDate.Before(invDate), true
}

func fieldValue(found []invoice.ExtractedField, name string) string {
	for _, f := range found {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
