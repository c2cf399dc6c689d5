package regions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/pkg/invoice"
)

var sampleInvoice = strings.Join([]string{
	"Acme Supplies Inc.",            // 0
	"123 Main Street",               // 1
	"Springfield",                   // 2
	"Bill To: Wayne Enterprises",    // 3
	"Invoice #: INV-2024-001",       // 4
	"Invoice Date: 2024-05-01",      // 5
	"Description  Qty  Price  Amount", // 6
	"Office Chairs  5  400.00  2000.00", // 7
	"Delivery  1  500.00  500.00",   // 8
	"Subtotal: 2500.00",             // 9
	"Tax: 0.00",                     // 10
	"Total: 2500.00",                // 11
}, "\n")

func regionMap(regs []invoice.TextRegion) map[invoice.RegionKind]invoice.TextRegion {
	m := make(map[invoice.RegionKind]invoice.TextRegion, len(regs))
	for _, r := range regs {
		m[r.Kind] = r
	}
	return m
}

func TestSegmentFullInvoice(t *testing.T) {
	regs := Segment(sampleInvoice)
	require.Len(t, regs, 4)
	m := regionMap(regs)

	assert.Equal(t, invoice.TextRegion{Kind: invoice.RegionHeader, StartLine: 0, EndLine: 3}, m[invoice.RegionHeader])
	assert.Equal(t, invoice.TextRegion{Kind: invoice.RegionMetadata, StartLine: 3, EndLine: 6}, m[invoice.RegionMetadata])
	assert.Equal(t, invoice.TextRegion{Kind: invoice.RegionLineItems, StartLine: 6, EndLine: 9}, m[invoice.RegionLineItems])
	assert.Equal(t, invoice.TextRegion{Kind: invoice.RegionFooter, StartLine: 9, EndLine: 12}, m[invoice.RegionFooter])
}

func TestSegmentRegionsNeverOverlap(t *testing.T) {
	texts := []string{
		sampleInvoice,
		"one line",
		"",
		"Total: 100.00\nDescription Qty Price Amount\nTotal: 100.00",
		strings.Repeat("filler line\n", 20),
	}

	for _, text := range texts {
		regs := Segment(text)
		require.Len(t, regs, 4)
		for i := 1; i < len(regs); i++ {
			assert.GreaterOrEqual(t, regs[i].StartLine, regs[i-1].EndLine,
				"region %s overlaps %s", regs[i].Kind, regs[i-1].Kind)
			assert.GreaterOrEqual(t, regs[i].EndLine, regs[i].StartLine)
		}
	}
}

func TestSegmentDefaultHeaderSize(t *testing.T) {
	// No header-ending keyword anywhere: header defaults to the first 5 lines.
	text := strings.Repeat("plain line\n", 9) + "plain line"
	m := regionMap(Segment(text))

	assert.Equal(t, 0, m[invoice.RegionHeader].StartLine)
	assert.Equal(t, DefaultHeaderLines, m[invoice.RegionHeader].EndLine)
	assert.True(t, m[invoice.RegionLineItems].Empty())
}

func TestSegmentShortDocument(t *testing.T) {
	m := regionMap(Segment("only\ntwo"))
	assert.Equal(t, 2, m[invoice.RegionHeader].EndLine)
	assert.True(t, m[invoice.RegionMetadata].Empty())
	assert.True(t, m[invoice.RegionLineItems].Empty())
	assert.True(t, m[invoice.RegionFooter].Empty())
}

func TestSegmentEmptyText(t *testing.T) {
	for _, r := range Segment("") {
		assert.True(t, r.Empty(), "region %s not empty", r.Kind)
	}
}

func TestSegmentTableWithoutEndMarker(t *testing.T) {
	text := strings.Join([]string{
		"Invoice No: 1",
		"Description Qty Rate Amount",
		"Widgets 2 5.00 10.00",
		"Gadgets 1 3.00 3.00",
	}, "\n")
	m := regionMap(Segment(text))

	assert.Equal(t, 1, m[invoice.RegionLineItems].StartLine)
	assert.Equal(t, 4, m[invoice.RegionLineItems].EndLine)
	assert.True(t, m[invoice.RegionFooter].Empty())
}

func TestIsTableHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Description Qty Price Amount", true},
		{"Item Quantity Rate Total", true},
		{"Description and Amount", false},
		{"Office Chairs 5 400.00 2000.00", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTableHeader(tt.line), tt.line)
	}
}

func TestFind(t *testing.T) {
	regs := Segment(sampleInvoice)
	items := Find(regs, invoice.RegionLineItems)
	assert.Equal(t, invoice.RegionLineItems, items.Kind)
	assert.False(t, items.Empty())

	missing := Find(nil, invoice.RegionFooter)
	assert.True(t, missing.Empty())
}
