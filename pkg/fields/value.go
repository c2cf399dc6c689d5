package fields

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateFormats lists the layouts accepted for invoice dates, most common
// first. A pattern's DateFormatHint is tried before this list.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/06",
}

// ParseDate parses a date value, trying the hint layout first.
func ParseDate(value, hint string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if hint != "" {
		if t, err := time.Parse(hint, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", value)
}

var amountCleanRe = regexp.MustCompile(`[^\d.,-]`)

// ParseAmount parses a monetary value into a decimal, tolerating currency
// symbols, thousands separators, and European comma decimals.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := amountCleanRe.ReplaceAllString(strings.TrimSpace(value), "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.250,00 style: dots group, comma is the decimal mark.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,250.00 style.
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Comma only: decimal mark when followed by exactly two digits.
		if len(s)-lastComma-1 == 2 {
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable amount %q", value)
	}
	return d, nil
}

var identifierShapeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/_#-]{1,}$`)

// ValidIdentifier reports whether a value looks like an invoice or PO
// number: alphanumeric with common separators and at least one digit.
func ValidIdentifier(value string) bool {
	if !identifierShapeRe.MatchString(value) {
		return false
	}
	return strings.ContainsAny(value, "0123456789")
}

// NormalizeIdentifier produces the canonical form of an identifier:
// uppercase, surrounding noise trimmed, internal whitespace removed.
func NormalizeIdentifier(value string) string {
	s := strings.ToUpper(strings.TrimSpace(value))
	s = strings.Trim(s, ".,;:#")
	return strings.Join(strings.Fields(s), "")
}

var currencyCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ValidCurrency accepts ISO 4217 style codes.
func ValidCurrency(value string) bool {
	return currencyCodeRe.MatchString(strings.TrimSpace(value))
}
