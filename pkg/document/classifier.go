// Package document classifies raw PDF bytes by how their text is exposed:
// a real text layer (digital), images only (scanned), or a mix (hybrid).
// The classification drives backend ordering in the extraction coordinator.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pgerrors "github.com/paperglass/paperglass/pkg/errors"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// DigitalCoverageThreshold is the minimum text coverage ratio for a PDF to
// be treated as fully digital.
const DigitalCoverageThreshold = 0.8

// Classifier inspects raw PDF bytes and derives a DocumentKind.
type Classifier struct {
	logger logging.Logger
}

// NewClassifier creates a Classifier. A nil logger falls back to a no-op.
func NewClassifier(logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Classifier{logger: logger}
}

// Classify parses the document and decides its kind. Structurally invalid
// PDFs classify as Unreadable and return ErrUnreadableDocument; the caller
// must not run any further pipeline stage for them.
func (c *Classifier) Classify(ctx context.Context, doc invoice.RawDocument) (invoice.Classification, error) {
	if doc.Empty() {
		return invoice.Classification{Kind: invoice.KindUnreadable},
			fmt.Errorf("classify %s: %w", doc.Filename, pgerrors.ErrEmptyDocument)
	}
	if err := ctx.Err(); err != nil {
		return invoice.Classification{Kind: invoice.KindUnreadable}, err
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Bytes), conf)
	if err != nil {
		c.logger.Warn("document failed structural validation",
			logging.F("filename", doc.Filename),
			logging.Err(err))
		return invoice.Classification{Kind: invoice.KindUnreadable},
			fmt.Errorf("classify %s: %w: %v", doc.Filename, pgerrors.ErrUnreadableDocument, err)
	}

	hasImages := detectImageStreams(pdfCtx)
	pagesWithText := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		text := extractPageText(pdfCtx, pageNr)
		if MeasureText(text).Usable() {
			pagesWithText++
		}
	}

	coverage := 0.0
	if pdfCtx.PageCount > 0 {
		coverage = float64(pagesWithText) / float64(pdfCtx.PageCount)
	}

	cls := invoice.Classification{
		Kind:          DecideKind(coverage, hasImages),
		CoverageRatio: coverage,
		PageCount:     pdfCtx.PageCount,
		HasImages:     hasImages,
	}

	c.logger.Debug("document classified",
		logging.F("filename", doc.Filename),
		logging.F("kind", string(cls.Kind)),
		logging.F("coverage", cls.CoverageRatio),
		logging.F("pages", cls.PageCount),
		logging.F("has_images", cls.HasImages))

	return cls, nil
}

// DecideKind maps a text coverage ratio and image presence to a kind.
// Kept as a pure function so the decision table is testable on its own.
func DecideKind(coverage float64, hasImages bool) invoice.DocumentKind {
	switch {
	case coverage >= DigitalCoverageThreshold:
		return invoice.KindDigital
	case coverage == 0 && hasImages:
		return invoice.KindScanned
	case coverage > 0:
		return invoice.KindHybrid
	default:
		// No text layer and no images: structurally valid but carries
		// nothing extractable.
		return invoice.KindUnreadable
	}
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream parses PDF content stream operators for text.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// Tj / TJ show-text operators.
		if bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		}

		// ' operator: move to next line and show text.
		if bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}
		}

		// Td/TD text positioning.
		if bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")) {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}

		if bytes.Equal(line, []byte("T*")) {
			sb.WriteByte('\n')
		}
	}

	return cleanText(sb.String())
}

// decodePDFString handles basic PDF escape sequences including octal escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
						i++
						val = val*8 + int(raw[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

func cleanText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
