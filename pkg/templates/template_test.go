package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/patterns"
	"github.com/paperglass/paperglass/pkg/regions"
)

func acmeTemplate() Template {
	return Template{
		Name:          "acme",
		Vendor:        "Acme Supplies",
		MinConfidence: 0.6,
		Patterns: []patterns.FieldPattern{
			{ID: "acme-num", FieldName: invoice.FieldInvoiceNumber,
				Regex: `ACME-(\d{6})`, Priority: 1, IsActive: true, ConfidenceWeight: 0.95},
			{ID: "acme-total", FieldName: invoice.FieldTotalAmount,
				Regex: `(?i)amount\s+payable\s*[:.]?\s*\$?([\d,.]+)`, Priority: 1, IsActive: true, ConfidenceWeight: 0.95},
		},
	}
}

var acmeText = strings.Join([]string{
	"ACME SUPPLIES",
	"Bill To: Wayne Enterprises",
	"Invoice Ref ACME-123456",
	"Amount Payable: $750.00",
}, "\n")

func TestMatcherPicksFirstQualifyingTemplate(t *testing.T) {
	m, err := NewMatcher([]Template{acmeTemplate()}, logging.NewNopLogger())
	require.NoError(t, err)

	res, ok := m.Match(acmeText, regions.Segment(acmeText))
	require.True(t, ok)
	assert.Equal(t, "acme", res.Name)
	assert.GreaterOrEqual(t, res.Score, 0.6)

	var num string
	for _, f := range res.Fields {
		if f.Name == invoice.FieldInvoiceNumber {
			num = f.Value
		}
	}
	assert.Equal(t, "123456", num)
}

func TestMatcherNoMatchBelowThreshold(t *testing.T) {
	tmpl := acmeTemplate()
	tmpl.MinConfidence = 0.99
	m, err := NewMatcher([]Template{tmpl}, nil)
	require.NoError(t, err)

	_, ok := m.Match(acmeText, nil)
	assert.False(t, ok)
}

func TestMatcherMissingFieldsDragScoreDown(t *testing.T) {
	m, err := NewMatcher([]Template{acmeTemplate()}, nil)
	require.NoError(t, err)

	// Only one of the two template fields is present.
	text := "Invoice Ref ACME-123456"
	_, ok := m.Match(text, nil)
	assert.False(t, ok)
}

func TestMatcherRegistrationOrder(t *testing.T) {
	second := acmeTemplate()
	second.Name = "acme-v2"

	m, err := NewMatcher([]Template{acmeTemplate(), second}, nil)
	require.NoError(t, err)

	res, ok := m.Match(acmeText, nil)
	require.True(t, ok)
	assert.Equal(t, "acme", res.Name)
}

func TestMatcherEmptyTemplateList(t *testing.T) {
	m, err := NewMatcher(nil, nil)
	require.NoError(t, err)
	_, ok := m.Match(acmeText, nil)
	assert.False(t, ok)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr string
	}{
		{"missing name", func(tm *Template) { tm.Name = "" }, "without a name"},
		{"bad threshold", func(tm *Template) { tm.MinConfidence = 0 }, "min_confidence"},
		{"no patterns", func(tm *Template) { tm.Patterns = nil }, "no patterns"},
		{"bad pattern", func(tm *Template) { tm.Patterns[0].Regex = "([" }, "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := acmeTemplate()
			tt.mutate(&tmpl)
			err := tmpl.Compile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyOverridesOnlyDefinedFields(t *testing.T) {
	generic := []invoice.ExtractedField{
		{Name: invoice.FieldInvoiceNumber, Value: "GEN-1", Confidence: 0.6},
		{Name: invoice.FieldVendorName, Value: "Acme Supplies", Confidence: 0.7},
	}
	match := &MatchResult{
		Name: "acme",
		Fields: []invoice.ExtractedField{
			{Name: invoice.FieldInvoiceNumber, Value: "123456", Confidence: 0.95},
			{Name: invoice.FieldTotalAmount, Value: "750.00", Confidence: 0.9},
		},
	}

	out := Apply(generic, match)
	require.Len(t, out, 3)

	byName := make(map[string]invoice.ExtractedField)
	for _, f := range out {
		byName[f.Name] = f
	}
	assert.Equal(t, "123456", byName[invoice.FieldInvoiceNumber].Value)
	assert.Equal(t, "Acme Supplies", byName[invoice.FieldVendorName].Value)
	assert.Equal(t, "750.00", byName[invoice.FieldTotalAmount].Value)
}

func TestApplyNilMatchPassesThrough(t *testing.T) {
	generic := []invoice.ExtractedField{{Name: "a", Value: "1"}}
	assert.Equal(t, generic, Apply(generic, nil))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	content := `
templates:
  - name: globex
    vendor: Globex Corp
    min_confidence: 0.7
    patterns:
      - id: globex-num
        field: invoice_number
        regex: 'GLX(\d+)'
        active: true
        confidence_weight: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tmpls, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tmpls, 1)
	assert.Equal(t, "globex", tmpls[0].Name)
	assert.Equal(t, "Globex Corp", tmpls[0].Vendor)

	m, err := NewMatcher(tmpls, nil)
	require.NoError(t, err)
	res, ok := m.Match("GLX99001", nil)
	require.True(t, ok)
	assert.Equal(t, "globex", res.Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/templates.yaml")
	assert.Error(t, err)
}
