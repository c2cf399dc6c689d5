package document

import (
	"strings"
	"unicode"
)

// TextQuality captures heuristics about extracted text. Backends use it to
// estimate intrinsic confidence; the classifier uses it to decide whether a
// page's text layer is real or an artifact of a broken encoding.
type TextQuality struct {
	CharCount      int
	PrintableRatio float64
	WordlikeRatio  float64
}

// MeasureText computes quality heuristics for a block of extracted text.
func MeasureText(text string) TextQuality {
	return TextQuality{
		CharCount:      len([]rune(text)),
		PrintableRatio: PrintableRatio(text),
		WordlikeRatio:  WordlikeRatio(text),
	}
}

// Usable reports whether the text looks like genuine content rather than
// encoding garbage. Pages with a broken ToUnicode map typically extract as
// private-use-area runes or replacement characters.
func (q TextQuality) Usable() bool {
	return q.CharCount >= minUsableChars && q.PrintableRatio >= minPrintableRatio
}

const (
	minUsableChars    = 20
	minPrintableRatio = 0.85
)

// PrintableRatio returns the ratio of printable characters in text.
// Private Use Area runes, the replacement character, and control characters
// other than whitespace count against the ratio.
func PrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// WordlikeRatio returns the ratio of word-like tokens (length 2-15 runes)
// to total whitespace-separated tokens.
func WordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
