package backends

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// OCR rasterizes pages with pdftoppm and recognizes them with tesseract.
// It is the only backend that works on scanned documents, and the last
// fallback for hybrid ones.
type OCR struct {
	cfg    config.OCRConfig
	runner Runner
	logger logging.Logger
}

var _ TextExtractor = (*OCR)(nil)

func NewOCR(cfg config.OCRConfig, runner Runner, logger logging.Logger) *OCR {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if runner == nil {
		runner = &ExecRunner{Logger: logger}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &OCR{cfg: cfg, runner: runner, logger: logger}
}

func (o *OCR) Name() string { return NameOCR }

func (o *OCR) Extract(ctx context.Context, doc invoice.RawDocument) (Result, error) {
	if doc.Empty() {
		return Result{}, fmt.Errorf("%s: empty document", NameOCR)
	}

	pdfPath, cleanupPDF, err := writeTempPDF(doc.Bytes)
	if err != nil {
		return Result{}, fmt.Errorf("%s: temp file: %w", NameOCR, err)
	}
	defer cleanupPDF()

	tmpDir, err := os.MkdirTemp("", "paperglass-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("%s: temp dir: %w", NameOCR, err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm,
		"-r", strconv.Itoa(o.cfg.DPI), "-png", pdfPath, prefix)
	if err != nil {
		return Result{Warnings: []string{string(errb)}},
			fmt.Errorf("%s: pdftoppm: %w", NameOCR, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if o.cfg.MaxPages > 0 && len(matches) > o.cfg.MaxPages {
		matches = matches[:o.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{}, fmt.Errorf("%s: pdftoppm produced no images", NameOCR)
	}

	var sb strings.Builder
	var warnings []string
	var confSum float64
	confPages := 0
	for _, img := range matches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		txt, conf, err := o.recognizePage(ctx, img)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(txt)
		if conf > 0 {
			confSum += conf
			confPages++
		}
	}

	text := normalizeText(sb.String())
	toolConf := 0.0
	if confPages > 0 {
		toolConf = confSum / float64(confPages)
	}
	conf := blendConfidence(toolConf, heuristicConfidence(text))

	o.logger.Debug("ocr extraction done",
		logging.F("filename", doc.Filename),
		logging.F("pages", len(matches)),
		logging.F("chars", len(text)),
		logging.F("confidence", conf))

	return Result{
		Text:       text,
		Confidence: conf,
		Succeeded:  text != "",
		Warnings:   warnings,
	}, nil
}

// recognizePage runs tesseract in TSV mode on one rendered page and returns
// the recognized text plus the mean word confidence in [0,1].
func (o *OCR) recognizePage(ctx context.Context, img string) (string, float64, error) {
	out, errb, err := o.runner.Run(ctx, o.cfg.Tesseract,
		img, "stdout", "-l", o.cfg.Language)
	if err != nil {
		return "", 0, fmt.Errorf("tesseract %s: %w (%s)", filepath.Base(img), err, truncate(string(errb), 512))
	}
	text := string(out)

	conf, _ := o.tsvConfidence(ctx, img)
	return text, conf, nil
}

// tsvConfidence reruns tesseract in TSV mode to recover per-word confidence.
// Failure here degrades to the heuristic score, never fails the page.
func (o *OCR) tsvConfidence(ctx context.Context, img string) (float64, error) {
	out, _, err := o.runner.Run(ctx, o.cfg.Tesseract,
		img, "stdout", "-l", o.cfg.Language, "tsv")
	if err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n) / 100.0, nil
}
