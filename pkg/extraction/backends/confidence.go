package backends

import (
	"regexp"
	"strings"

	"github.com/paperglass/paperglass/pkg/document"
)

var (
	reDate   = regexp.MustCompile(`\b(19|20)\d{2}[-/.]\d{1,2}[-/.]\d{1,2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.](19|20)\d{2}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|chf|jpy)\b|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
	reInvTag = regexp.MustCompile(`(?i)\b(invoice|inv|rechnung|facture|factura)\b`)
)

// heuristicConfidence estimates extraction quality from invoice artifacts in
// the text: dates, currency markers, monetary amounts, invoice vocabulary,
// and the overall character quality of the extraction.
func heuristicConfidence(text string) float64 {
	q := document.MeasureText(text)
	if q.CharCount == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	score := 0.2
	if reDate.MatchString(lower) {
		score += 0.2
	}
	if reCurr.MatchString(lower) {
		score += 0.15
	}
	if reAmount.MatchString(lower) {
		score += 0.15
	}
	if reInvTag.MatchString(lower) {
		score += 0.1
	}
	if q.CharCount > 120 {
		score += 0.1
	}

	// Garbage-heavy extractions are penalized regardless of artifacts.
	score *= q.PrintableRatio
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence combines a tool-reported confidence (e.g. mean tesseract
// word confidence) with the heuristic score, weighting the tool higher when
// it reported anything.
func blendConfidence(toolConf, heurConf float64) float64 {
	var conf float64
	if toolConf > 0 {
		conf = 0.7*toolConf + 0.3*heurConf
	} else {
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
