package fields

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/patterns"
	"github.com/paperglass/paperglass/pkg/regions"
)

var digitalInvoiceText = strings.Join([]string{
	"Acme Supplies Inc.",
	"123 Main Street",
	"Bill To: Wayne Enterprises",
	"Invoice #: INV-2024-001",
	"Invoice Date: 2024-05-01",
	"Due Date: 2024-05-31",
	"Description  Qty  Price  Amount",
	"Office Chairs  5  400.00  2000.00",
	"Subtotal: 2,500.00",
	"Tax: 0.00",
	"Total: $1,250.00",
}, "\n")

func extractAll(t *testing.T, text string) []invoice.ExtractedField {
	t.Helper()
	e := NewExtractor(logging.NewNopLogger())
	return e.ExtractAll(text, regions.Segment(text), patterns.DefaultSnapshot())
}

func findField(fields []invoice.ExtractedField, name string) *invoice.ExtractedField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

func TestExtractDigitalInvoice(t *testing.T) {
	fields := extractAll(t, digitalInvoiceText)

	num := findField(fields, invoice.FieldInvoiceNumber)
	require.NotNil(t, num)
	assert.Equal(t, "INV-2024-001", num.Value)
	assert.GreaterOrEqual(t, num.Confidence, 0.8)
	assert.True(t, num.FormatValid)

	total := findField(fields, invoice.FieldTotalAmount)
	require.NotNil(t, total)
	assert.Equal(t, "1,250.00", total.Value)
	assert.GreaterOrEqual(t, total.Confidence, 0.8)
	amt, err := ParseAmount(total.Value)
	require.NoError(t, err)
	assert.True(t, amt.Equal(decimal.RequireFromString("1250.00")))

	date := findField(fields, invoice.FieldInvoiceDate)
	require.NotNil(t, date)
	assert.Equal(t, "2024-05-01", date.Value)

	due := findField(fields, invoice.FieldDueDate)
	require.NotNil(t, due)
	assert.Equal(t, "2024-05-31", due.Value)

	sub := findField(fields, invoice.FieldSubtotal)
	require.NotNil(t, sub)
	assert.Equal(t, "2,500.00", sub.Value)
}

func TestExtractIdempotent(t *testing.T) {
	first := extractAll(t, digitalInvoiceText)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, extractAll(t, digitalInvoiceText))
	}
}

func TestExtractFieldNotFound(t *testing.T) {
	e := NewExtractor(nil)
	text := "nothing interesting here"
	_, ok := e.ExtractField(invoice.FieldInvoiceNumber, text, regions.Segment(text), patterns.DefaultSnapshot())
	assert.False(t, ok)
}

func TestExtractRecordsProvenance(t *testing.T) {
	fields := extractAll(t, digitalInvoiceText)

	num := findField(fields, invoice.FieldInvoiceNumber)
	require.NotNil(t, num)
	assert.Equal(t, "inv-num-labeled", num.PatternID)
	assert.Equal(t, 3, num.SourceLine)
	assert.Equal(t, invoice.RegionMetadata, num.Region)
}

func TestContextKeywordGate(t *testing.T) {
	snap, err := patterns.NewSnapshot("test", []patterns.FieldPattern{
		{ID: "gated", FieldName: "invoice_number", Regex: `\b([A-Z]{3}-\d+)\b`,
			ContextKeywords: []string{"invoice"}, IsActive: true, ConfidenceWeight: 0.8},
	})
	require.NoError(t, err)
	e := NewExtractor(nil)

	t.Run("keyword on adjacent line", func(t *testing.T) {
		text := "invoice follows\nREF-123"
		f, ok := e.ExtractField("invoice_number", text, nil, snap)
		require.True(t, ok)
		assert.Equal(t, "REF-123", f.Value)
	})

	t.Run("no keyword anywhere", func(t *testing.T) {
		text := "order\nREF-123\nshipping"
		_, ok := e.ExtractField("invoice_number", text, nil, snap)
		assert.False(t, ok)
	})
}

func TestTieBreakByPriorityThenLine(t *testing.T) {
	// Two patterns with equal weight matching different lines.
	snap, err := patterns.NewSnapshot("test", []patterns.FieldPattern{
		{ID: "second", FieldName: "f", Regex: `val-(\d+)`, Priority: 20, IsActive: true, ConfidenceWeight: 0.8},
		{ID: "first", FieldName: "f", Regex: `val-(\d+)`, Priority: 10, IsActive: true, ConfidenceWeight: 0.8},
	})
	require.NoError(t, err)
	e := NewExtractor(nil)

	f, ok := e.ExtractField("f", "val-111\nval-222", nil, snap)
	require.True(t, ok)
	assert.Equal(t, "first", f.PatternID)
	assert.Equal(t, "111", f.Value)
	assert.Equal(t, 0, f.SourceLine)
}

func TestRegionPreferredOverWholeDocument(t *testing.T) {
	// The same total label appears in the line-items region and the footer;
	// the footer occurrence must win for total_amount.
	text := strings.Join([]string{
		"Vendor: Acme Inc.",
		"Bill To: Wayne",
		"Description Qty Price Amount",
		"Total row filler 1 1.00 1.00",
		"Subtotal: 100.00",
		"Total: 999.00",
	}, "\n")

	fields := extractAll(t, text)
	total := findField(fields, invoice.FieldTotalAmount)
	require.NotNil(t, total)
	assert.Equal(t, "999.00", total.Value)
	assert.Equal(t, invoice.RegionFooter, total.Region)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1,250.00", "1250.00", false},
		{"$1,250.00", "1250.00", false},
		{"1.250,00", "1250.00", false},
		{"2500", "2500", false},
		{"99.5", "99.5", false},
		{"1,250", "1250", false},
		{"-45.00", "-45.00", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{
		"2024-05-01",
		"05/31/2024",
		"2024/05/01",
		"Jan 2, 2024",
		"2 January 2024",
		"31.12.2024",
	}
	for _, s := range valid {
		t.Run(s, func(t *testing.T) {
			_, err := ParseDate(s, "")
			assert.NoError(t, err)
		})
	}

	t.Run("hint takes precedence", func(t *testing.T) {
		got, err := ParseDate("03.04.2024", "01.02.2006")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-04", got.Format("2006-01-02"))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDate("not a date", "")
		assert.Error(t, err)
	})
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "INV-2024-001", NormalizeIdentifier("  inv-2024-001. "))
	assert.Equal(t, "PO123", NormalizeIdentifier("po 123"))
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("INV-2024-001"))
	assert.True(t, ValidIdentifier("12345"))
	assert.False(t, ValidIdentifier("Date"))
	assert.False(t, ValidIdentifier("x"))
	assert.False(t, ValidIdentifier("has space 1"))
}
