// Package regions segments line-indexed invoice text into header, metadata,
// line-items, and footer regions. Segmentation is heuristic and best-effort:
// an undetectable region comes back empty and downstream components fall
// back to whole-document search.
package regions

import (
	"regexp"
	"strings"

	"github.com/paperglass/paperglass/pkg/invoice"
)

// DefaultHeaderLines is the header size assumed when no header-ending
// keyword is found.
const DefaultHeaderLines = 5

var headerEndRe = regexp.MustCompile(`(?i)\b(bill\s*to|ship\s*to|invoice\s*(?:#|no\.?|num(?:ber)?)|invoice\s*date)\b`)

// Column keyword groups for the table header test. A line counts as a table
// header when at least three groups are represented.
var columnGroups = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(description|item|product|service)\b`),
	regexp.MustCompile(`(?i)\b(qty|quantity|units?|hours)\b`),
	regexp.MustCompile(`(?i)\b(price|rate|unit\s*price|cost)\b`),
	regexp.MustCompile(`(?i)\b(total|amount|line\s*total|extended)\b`),
}

var tableEndRe = regexp.MustCompile(`(?i)\b(sub\s*-?\s*total|total|tax|vat|gst|amount\s*due|balance\s*due)\b`)

// MinColumnGroups is the table-header detection threshold.
const MinColumnGroups = 3

// Lines splits raw text the way every region consumer expects.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// Segment derives the four document regions from raw text. The returned
// regions never overlap and appear in header < metadata < line_items <
// footer order; undetectable ones are empty.
func Segment(text string) []invoice.TextRegion {
	lines := Lines(text)
	n := len(lines)
	if strings.TrimSpace(text) == "" {
		n = 0
	}

	headerEnd := headerBoundary(lines, n)
	itemsStart, itemsEnd := tableBoundaries(lines, headerEnd, n)

	metadataEnd := itemsStart
	if metadataEnd < headerEnd {
		metadataEnd = headerEnd
	}

	return []invoice.TextRegion{
		{Kind: invoice.RegionHeader, StartLine: 0, EndLine: headerEnd},
		{Kind: invoice.RegionMetadata, StartLine: headerEnd, EndLine: metadataEnd},
		{Kind: invoice.RegionLineItems, StartLine: itemsStart, EndLine: itemsEnd},
		{Kind: invoice.RegionFooter, StartLine: itemsEnd, EndLine: n},
	}
}

// headerBoundary finds where the header ends: the first line carrying an
// invoice-identity keyword, or a fixed prefix when none appears.
func headerBoundary(lines []string, n int) int {
	for i := 0; i < n; i++ {
		if headerEndRe.MatchString(lines[i]) {
			return i
		}
	}
	if n < DefaultHeaderLines {
		return n
	}
	return DefaultHeaderLines
}

// tableBoundaries locates the line-item table. Returns an empty range at
// the document end when no table header is found.
func tableBoundaries(lines []string, from, n int) (int, int) {
	start := -1
	for i := from; i < n; i++ {
		if IsTableHeader(lines[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return n, n
	}

	end := n
	for i := start + 1; i < n; i++ {
		if tableEndRe.MatchString(lines[i]) {
			end = i
			break
		}
	}
	return start, end
}

// IsTableHeader reports whether a line looks like a line-item column header.
func IsTableHeader(line string) bool {
	hits := 0
	for _, g := range columnGroups {
		if g.MatchString(line) {
			hits++
		}
	}
	return hits >= MinColumnGroups
}

// IsTableEnd reports whether a line terminates the line-item table.
func IsTableEnd(line string) bool {
	return tableEndRe.MatchString(line)
}

// Find returns the region of the given kind, empty if absent.
func Find(regs []invoice.TextRegion, kind invoice.RegionKind) invoice.TextRegion {
	for _, r := range regs {
		if r.Kind == kind {
			return r
		}
	}
	return invoice.TextRegion{Kind: kind}
}
