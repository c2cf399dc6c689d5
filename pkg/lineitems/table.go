// Package lineitems parses the line-item table out of invoice text. Column
// roles are inferred from the header row's keyword positions; row parsing
// is a positional heuristic that degrades to partial rows rather than
// failing the table.
package lineitems

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/regions"
)

// Column roles, ordered left to right in a conventional invoice table.
type role string

const (
	roleDescription role = "description"
	roleQuantity    role = "quantity"
	rolePrice       role = "price"
	roleTotal       role = "total"
)

var roleKeywords = []struct {
	role role
	re   *regexp.Regexp
}{
	{roleDescription, regexp.MustCompile(`(?i)\b(description|item|product|service)\b`)},
	{roleQuantity, regexp.MustCompile(`(?i)\b(qty|quantity|units?|hours)\b`)},
	{rolePrice, regexp.MustCompile(`(?i)\b(price|rate|unit\s*price|cost)\b`)},
	{roleTotal, regexp.MustCompile(`(?i)\b(total|amount|line\s*total|extended)\b`)},
}

// column is one detected table column with its header offset.
type column struct {
	role  role
	start int
}

var separatorRe = regexp.MustCompile(`^[\s|+=_-]+$`)

// numericTokenRe keeps ParseAmount from swallowing alphanumeric cell text
// like part numbers when scanning a row's right edge.
var numericTokenRe = regexp.MustCompile(`^[$€£]?-?[\d.,]+$`)

// Extractor parses line-item tables.
type Extractor struct {
	logger logging.Logger
}

func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{logger: logger}
}

// Extract finds the table and parses its rows. Returns nil when no table
// header is detected; a missing table is not an error.
func (e *Extractor) Extract(text string) []invoice.LineItem {
	lines := regions.Lines(text)

	headerIdx := -1
	for i, line := range lines {
		if regions.IsTableHeader(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	cols := detectColumns(lines[headerIdx])
	numericRoles := numericOrder(cols)

	var items []invoice.LineItem
	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		if regions.IsTableEnd(line) {
			break
		}
		if strings.TrimSpace(line) == "" || separatorRe.MatchString(line) {
			continue
		}
		if item, ok := parseRow(line, numericRoles); ok {
			items = append(items, item)
		}
	}

	e.logger.Debug("line items extracted",
		logging.F("header_line", headerIdx),
		logging.F("rows", len(items)))
	return items
}

// detectColumns locates each role keyword in the header line and orders
// columns by horizontal offset; the leftmost is the description.
func detectColumns(header string) []column {
	var cols []column
	for _, rk := range roleKeywords {
		if loc := rk.re.FindStringIndex(header); loc != nil {
			cols = append(cols, column{role: rk.role, start: loc[0]})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].start < cols[j].start })
	if len(cols) > 0 {
		cols[0].role = roleDescription
	}
	return cols
}

// numericOrder returns the numeric column roles in left-to-right order.
func numericOrder(cols []column) []role {
	var out []role
	for _, c := range cols[1:] {
		if c.role != roleDescription {
			out = append(out, c.role)
		}
	}
	return out
}

// parseRow splits a data row into description and numeric cells. Numeric
// tokens are taken from the right edge and assigned to numeric columns
// right-to-left, so partial rows lose the leftmost numeric fields first.
// A row survives as long as its description is non-empty.
func parseRow(line string, numericRoles []role) (invoice.LineItem, bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return invoice.LineItem{}, false
	}

	numerics := make([]decimal.Decimal, 0, len(numericRoles))
	end := len(tokens)
	for end > 1 && len(numerics) < len(numericRoles) {
		if !numericTokenRe.MatchString(tokens[end-1]) {
			break
		}
		d, err := fields.ParseAmount(tokens[end-1])
		if err != nil {
			break
		}
		numerics = append(numerics, d)
		end--
	}

	item := invoice.LineItem{
		Description: strings.Join(tokens[:end], " "),
	}
	if item.Description == "" {
		return invoice.LineItem{}, false
	}

	// numerics[0] is the rightmost token; walk roles from the right.
	for i, d := range numerics {
		d := d
		switch numericRoles[len(numericRoles)-1-i] {
		case roleQuantity:
			item.Quantity = &d
		case rolePrice:
			item.UnitPrice = &d
		case roleTotal:
			item.LineTotal = &d
		}
	}
	return item, true
}

// Sum totals the LineTotal of every row that has one.
func Sum(items []invoice.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.LineTotal != nil {
			sum = sum.Add(*it.LineTotal)
		}
	}
	return sum
}
