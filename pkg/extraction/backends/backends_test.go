package backends

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

const sampleInvoiceText = `INVOICE
Invoice Number: INV-2024-0042
Invoice Date: 2024-05-01
Total Amount: $1,250.00 USD`

// fakeRunner scripts responses per command name.
type fakeRunner struct {
	calls     []string
	responses map[string]fakeResponse
}

type fakeResponse struct {
	stdout string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))

	// pdftoppm writes page images next to the given prefix.
	if strings.Contains(name, "pdftoppm") {
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+"-1.png", []byte("png"), 0o644); err != nil {
			return nil, nil, err
		}
	}

	resp, ok := f.responses[name]
	if !ok {
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}
	return []byte(resp.stdout), nil, resp.err
}

func TestHeuristicConfidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{"empty text", "", 0, 0},
		{"plain prose", "hello world", 0.15, 0.35},
		{"full invoice artifacts", sampleInvoiceText + "\n" + strings.Repeat("line item text\n", 10), 0.75, 1.0},
		{"garbage heavy", strings.Repeat("�� ", 100), 0, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := heuristicConfidence(tt.text)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestBlendConfidence(t *testing.T) {
	assert.InDelta(t, 0.76, blendConfidence(0.8, 0.666667), 0.001)
	assert.InDelta(t, 0.5, blendConfidence(0, 0.5), 0.001)
	assert.InDelta(t, 1.0, blendConfidence(1.0, 1.0), 0.001)
}

func TestNormalizeText(t *testing.T) {
	in := "Line one  \r\nLine two\t\rLine three\n\n"
	got := normalizeText(in)
	assert.Equal(t, "Line one\nLine two\nLine three", got)
}

func TestFastStructuredRejectsEmptyDocument(t *testing.T) {
	b := NewFastStructured(logging.NewNopLogger())
	assert.Equal(t, NameFastStructured, b.Name())

	_, err := b.Extract(context.Background(), invoice.RawDocument{})
	assert.Error(t, err)
}

func TestFastStructuredCancelledContext(t *testing.T) {
	b := NewFastStructured(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Extract(ctx, invoice.RawDocument{Bytes: []byte("%PDF-1.4")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLayoutPreservingExtract(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"pdftotext": {stdout: sampleInvoiceText + "\f"},
	}}
	b := NewLayoutPreserving(config.OCRConfig{}, runner, logging.NewNopLogger())
	assert.Equal(t, NameLayoutPreserving, b.Name())

	res, err := b.Extract(context.Background(), invoice.RawDocument{
		Bytes:    []byte("%PDF-1.4 fake"),
		Filename: "inv.pdf",
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Contains(t, res.Text, "INV-2024-0042")
	assert.Greater(t, res.Confidence, 0.5)

	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0], "-layout")
}

func TestLayoutPreservingToolFailure(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"pdftotext": {err: fmt.Errorf("exit status 1")},
	}}
	b := NewLayoutPreserving(config.OCRConfig{}, runner, nil)

	res, err := b.Extract(context.Background(), invoice.RawDocument{Bytes: []byte("x")})
	assert.Error(t, err)
	assert.False(t, res.Succeeded)
}

func TestOCRExtract(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"pdftoppm":  {},
		"tesseract": {stdout: sampleInvoiceText},
	}}

	b := NewOCR(config.OCRConfig{DPI: 72}, runner, logging.NewNopLogger())
	assert.Equal(t, NameOCR, b.Name())

	res, err := b.Extract(context.Background(), invoice.RawDocument{
		Bytes:    []byte("%PDF-1.4 fake"),
		Filename: "scan.pdf",
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Contains(t, res.Text, "Invoice Number")
	assert.Greater(t, res.Confidence, 0.5)

	// pdftoppm once, tesseract twice per page (text + tsv).
	require.Len(t, runner.calls, 3)
	assert.Contains(t, runner.calls[0], "pdftoppm")
	assert.Contains(t, runner.calls[0], "-r 72")
}

func TestOCRNoImagesRendered(t *testing.T) {
	// Runner that succeeds but writes no page files.
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"brokenppm": {},
	}}

	b := NewOCR(config.OCRConfig{Pdftoppm: "brokenppm"}, runner, nil)
	res, err := b.Extract(context.Background(), invoice.RawDocument{Bytes: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images")
	assert.False(t, res.Succeeded)
}
