package confidence

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

func newCalculator() *Calculator {
	return NewCalculator(config.Default().Weights, 0.05, logging.NewNopLogger())
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func completeFields() []invoice.ExtractedField {
	return []invoice.ExtractedField{
		{Name: invoice.FieldInvoiceNumber, Value: "INV-1", FormatValid: true},
		{Name: invoice.FieldInvoiceDate, Value: "2024-05-01", FormatValid: true},
		{Name: invoice.FieldDueDate, Value: "2024-05-31", FormatValid: true},
		{Name: invoice.FieldTotalAmount, Value: "2,500.00", FormatValid: true},
		{Name: invoice.FieldSubtotal, Value: "2500.00", FormatValid: true},
		{Name: invoice.FieldTaxAmount, Value: "0.00", FormatValid: true},
		{Name: invoice.FieldVendorName, Value: "Acme Inc.", FormatValid: true},
	}
}

func consistentItems() []invoice.LineItem {
	return []invoice.LineItem{
		{Description: "Office Chairs", Quantity: dec("5"), UnitPrice: dec("400.00"), LineTotal: dec("2000.00")},
		{Description: "Delivery", Quantity: dec("1"), UnitPrice: dec("500.00"), LineTotal: dec("500.00")},
	}
}

func TestScoreFullyConsistentRun(t *testing.T) {
	c := newCalculator()
	b := c.Score(Input{
		ExtractionConfidence: 0.9,
		Fields:               completeFields(),
		LineItems:            consistentItems(),
	})

	assert.InDelta(t, 0.9, b.Extraction, 0.001)
	assert.InDelta(t, 1.0, b.FieldScore, 0.001)
	assert.Zero(t, b.TemplateMatch)
	// Both consistency checks pass: 0.5 + 0.25 + 0.25.
	assert.InDelta(t, 1.0, b.CrossConsistency, 0.001)
	// 0.3*0.9 + 0.3*1.0 + 0.2*0 + 0.2*1.0
	assert.InDelta(t, 0.77, b.Overall, 0.001)
}

func TestScoreLowExtractionKeepsOverallLow(t *testing.T) {
	// A scanned document whose OCR came back at 0.4 cannot reach the
	// review threshold even with perfect fields.
	c := newCalculator()
	b := c.Score(Input{
		ExtractionConfidence: 0.4,
		Fields:               completeFields(),
		LineItems:            consistentItems(),
	})
	assert.Less(t, b.Overall, 0.7)
}

func TestConsistencyBonusOrdering(t *testing.T) {
	c := newCalculator()

	within := c.Score(Input{
		ExtractionConfidence: 0.8,
		Fields:               completeFields(),
		LineItems:            consistentItems(),
	})

	// Same run but line items diverge from the subtotal by well over 20%.
	diverging := c.Score(Input{
		ExtractionConfidence: 0.8,
		Fields:               completeFields(),
		LineItems: []invoice.LineItem{
			{Description: "Office Chairs", LineTotal: dec("1500.00")},
		},
	})

	assert.Greater(t, within.CrossConsistency, diverging.CrossConsistency)
	assert.Greater(t, within.Overall, diverging.Overall)
}

func TestConsistencyWithinTolerance(t *testing.T) {
	c := newCalculator()

	// 2480 vs subtotal 2500 is a 0.8% difference, inside the 5% band.
	b := c.Score(Input{
		Fields: completeFields(),
		LineItems: []invoice.LineItem{
			{Description: "Chairs", LineTotal: dec("2480.00")},
		},
	})
	assert.InDelta(t, 1.0, b.CrossConsistency, 0.001)
}

func TestConsistencyNeutralWhenDataMissing(t *testing.T) {
	c := newCalculator()

	t.Run("no line items and no dates", func(t *testing.T) {
		b := c.Score(Input{
			ExtractionConfidence: 0.8,
			Fields: []invoice.ExtractedField{
				{Name: invoice.FieldInvoiceNumber, Value: "INV-1", FormatValid: true},
			},
		})
		assert.InDelta(t, NeutralScore, b.CrossConsistency, 0.001)
	})

	t.Run("line items without subtotal field", func(t *testing.T) {
		b := c.Score(Input{
			Fields: []invoice.ExtractedField{
				{Name: invoice.FieldInvoiceNumber, Value: "INV-1", FormatValid: true},
			},
			LineItems: consistentItems(),
		})
		assert.InDelta(t, NeutralScore, b.CrossConsistency, 0.001)
	})
}

func TestConsistencyDueBeforeInvoiceDatePenalized(t *testing.T) {
	c := newCalculator()
	flds := completeFields()
	for i := range flds {
		if flds[i].Name == invoice.FieldDueDate {
			flds[i].Value = "2024-04-01"
		}
	}

	b := c.Score(Input{Fields: flds, LineItems: consistentItems()})
	// Subtotal check passes (+0.25), date check fails (-0.25).
	assert.InDelta(t, NeutralScore, b.CrossConsistency, 0.001)
}

func TestFieldScoreBlendsCompletenessAndFormat(t *testing.T) {
	// 3 of 7 expected fields found, 2 of 3 format-valid.
	found := []invoice.ExtractedField{
		{Name: invoice.FieldInvoiceNumber, Value: "INV-1", FormatValid: true},
		{Name: invoice.FieldTotalAmount, Value: "100.00", FormatValid: true},
		{Name: invoice.FieldInvoiceDate, Value: "someday", FormatValid: false},
	}
	got := fieldScore(found)
	want := (3.0/7.0 + 2.0/3.0) / 2
	assert.InDelta(t, want, got, 0.001)
}

func TestFieldScoreNoFields(t *testing.T) {
	assert.Zero(t, fieldScore(nil))
}

func TestTemplateMatchComponent(t *testing.T) {
	c := newCalculator()

	matched := c.Score(Input{TemplateMatched: true, TemplateScore: 0.95})
	assert.InDelta(t, 0.95, matched.TemplateMatch, 0.001)

	unmatched := c.Score(Input{})
	assert.Zero(t, unmatched.TemplateMatch)
}

func TestScoreClampsInputs(t *testing.T) {
	c := newCalculator()
	b := c.Score(Input{ExtractionConfidence: 1.7})
	assert.LessOrEqual(t, b.Extraction, 1.0)
	require.LessOrEqual(t, b.Overall, 1.0)
}
