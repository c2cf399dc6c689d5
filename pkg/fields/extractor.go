// Package fields locates individual invoice fields in raw text using the
// pattern library, with region-scoped search and deterministic candidate
// resolution.
package fields

import (
	"strings"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/patterns"
	"github.com/paperglass/paperglass/pkg/regions"
)

// Confidence component weights. A candidate's confidence combines the
// pattern's own weight, a format-validity bonus, and a label-proximity
// bonus for matches on a line carrying the field's canonical label.
const (
	patternWeight = 0.6
	formatBonus   = 0.25
	labelBonus    = 0.15
)

// preferredRegions maps each canonical field to the region searched first.
var preferredRegions = map[string]invoice.RegionKind{
	invoice.FieldInvoiceNumber: invoice.RegionMetadata,
	invoice.FieldInvoiceDate:   invoice.RegionMetadata,
	invoice.FieldDueDate:       invoice.RegionMetadata,
	invoice.FieldPurchaseOrder: invoice.RegionMetadata,
	invoice.FieldVendorName:    invoice.RegionHeader,
	invoice.FieldTotalAmount:   invoice.RegionFooter,
	invoice.FieldSubtotal:      invoice.RegionFooter,
	invoice.FieldTaxAmount:     invoice.RegionFooter,
	invoice.FieldCurrency:      invoice.RegionFooter,
}

// canonicalLabels drive the proximity bonus: substrings that mark a line as
// explicitly labeling the field.
var canonicalLabels = map[string][]string{
	invoice.FieldInvoiceNumber: {"invoice number", "invoice #", "invoice no"},
	invoice.FieldInvoiceDate:   {"invoice date", "date of invoice"},
	invoice.FieldDueDate:       {"due date", "payment due", "due by"},
	invoice.FieldTotalAmount:   {"total"},
	invoice.FieldSubtotal:      {"subtotal", "sub-total"},
	invoice.FieldTaxAmount:     {"tax", "vat", "gst"},
	invoice.FieldVendorName:    {"vendor", "supplier", "from"},
	invoice.FieldPurchaseOrder: {"purchase order", "po number", "p.o."},
	invoice.FieldCurrency:      {"currency"},
}

// Extractor applies pattern snapshots to segmented text.
type Extractor struct {
	logger logging.Logger
}

func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{logger: logger}
}

// candidate is one pattern match under consideration.
type candidate struct {
	field    invoice.ExtractedField
	priority int
}

// ExtractAll runs every field the snapshot knows about and returns the
// found ones. Absence of a field is not an error; the validator decides
// whether it matters.
func (e *Extractor) ExtractAll(text string, regs []invoice.TextRegion, snap *patterns.Snapshot) []invoice.ExtractedField {
	lines := regions.Lines(text)
	var out []invoice.ExtractedField
	for _, field := range snap.Fields() {
		if f, ok := e.extract(field, lines, regs, snap); ok {
			out = append(out, f)
		}
	}
	return out
}

// ExtractField locates a single field, returning ok=false when not found.
func (e *Extractor) ExtractField(field, text string, regs []invoice.TextRegion, snap *patterns.Snapshot) (invoice.ExtractedField, bool) {
	return e.extract(field, regions.Lines(text), regs, snap)
}

func (e *Extractor) extract(field string, lines []string, regs []invoice.TextRegion, snap *patterns.Snapshot) (invoice.ExtractedField, bool) {
	pats := snap.ForField(field)
	if len(pats) == 0 {
		return invoice.ExtractedField{}, false
	}

	region := regions.Find(regs, preferredRegions[field])

	var best *candidate
	for _, p := range pats {
		cand := e.matchPattern(field, p, lines, region)
		if cand == nil {
			continue
		}
		if better(cand, best) {
			best = cand
		}
	}
	if best == nil {
		return invoice.ExtractedField{}, false
	}

	best.field.Region = regionOf(regs, best.field.SourceLine)
	e.logger.Debug("field extracted",
		logging.F("field", field),
		logging.F("pattern", best.field.PatternID),
		logging.F("line", best.field.SourceLine),
		logging.F("confidence", best.field.Confidence))
	return best.field, true
}

// matchPattern tries one pattern against the preferred region, then the
// whole document when the region yields nothing. The first match per scope
// wins for that pattern; cross-pattern resolution happens in extract.
func (e *Extractor) matchPattern(field string, p *patterns.FieldPattern, lines []string, region invoice.TextRegion) *candidate {
	if !region.Empty() {
		if c := e.scanLines(field, p, lines, region.StartLine, region.EndLine); c != nil {
			return c
		}
	}
	return e.scanLines(field, p, lines, 0, len(lines))
}

func (e *Extractor) scanLines(field string, p *patterns.FieldPattern, lines []string, from, to int) *candidate {
	for i := from; i < to && i < len(lines); i++ {
		value, ok := p.Match(lines[i])
		if !ok {
			continue
		}
		if !contextSatisfied(p, lines, i) {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		formatValid := validFormat(field, value, p.DateFormatHint)
		conf := patternWeight * p.ConfidenceWeight
		if formatValid {
			conf += formatBonus
		}
		if lineHasLabel(field, lines[i]) {
			conf += labelBonus
		}

		return &candidate{
			field: invoice.ExtractedField{
				Name:        field,
				Value:       value,
				Confidence:  conf,
				PatternID:   p.ID,
				SourceLine:  i,
				FormatValid: formatValid,
			},
			priority: p.Priority,
		}
	}
	return nil
}

// contextSatisfied checks the pattern's keyword gate: at least one keyword
// on the match line or an adjacent one.
func contextSatisfied(p *patterns.FieldPattern, lines []string, i int) bool {
	if len(p.ContextKeywords) == 0 {
		return true
	}
	for _, off := range []int{0, -1, 1} {
		j := i + off
		if j < 0 || j >= len(lines) {
			continue
		}
		lower := strings.ToLower(lines[j])
		for _, kw := range p.ContextKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// better implements the deterministic resolution order: highest confidence,
// then lowest priority number, then earliest source line.
func better(c, best *candidate) bool {
	if best == nil {
		return true
	}
	if c.field.Confidence != best.field.Confidence {
		return c.field.Confidence > best.field.Confidence
	}
	if c.priority != best.priority {
		return c.priority < best.priority
	}
	return c.field.SourceLine < best.field.SourceLine
}

// validFormat applies type-specific validation for the bonus.
func validFormat(field, value, dateHint string) bool {
	switch field {
	case invoice.FieldInvoiceDate, invoice.FieldDueDate:
		_, err := ParseDate(value, dateHint)
		return err == nil
	case invoice.FieldTotalAmount, invoice.FieldSubtotal, invoice.FieldTaxAmount:
		d, err := ParseAmount(value)
		return err == nil && !d.IsNegative()
	case invoice.FieldInvoiceNumber, invoice.FieldPurchaseOrder:
		return ValidIdentifier(value)
	case invoice.FieldCurrency:
		return ValidCurrency(value)
	default:
		return len(strings.TrimSpace(value)) >= 3
	}
}

func lineHasLabel(field, line string) bool {
	lower := strings.ToLower(line)
	for _, label := range canonicalLabels[field] {
		if strings.Contains(lower, label) {
			return true
		}
	}
	return false
}

func regionOf(regs []invoice.TextRegion, line int) invoice.RegionKind {
	for _, r := range regs {
		if r.Contains(line) {
			return r.Kind
		}
	}
	return ""
}
