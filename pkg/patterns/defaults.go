package patterns

import "github.com/paperglass/paperglass/pkg/invoice"

// Shared value shapes. Dates accept ISO, slashed, and written-month forms;
// amounts accept thousands separators and an optional sign.
const (
	dateShape   = `(\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?,?\s+\d{4})`
	amountShape = `(-?\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|-?\d+(?:\.\d{1,2})?)`
	moneyPrefix = `(?:USD|EUR|GBP|CAD|AUD|CHF|[$€£])?\s*`
)

// DefaultPatterns is the built-in generic rule set. Vendor templates layer
// their own rules on top of these.
func DefaultPatterns() []FieldPattern {
	return []FieldPattern{
		{
			ID:               "inv-num-labeled",
			FieldName:        invoice.FieldInvoiceNumber,
			Category:         "identifier",
			Regex:            `(?i)\binvoice\s*(?:#|no\.?|num(?:ber)?\.?)?\s*[:.]?\s*#?\s*([A-Za-z]{0,8}[-#/]?\d[\dA-Za-z/_-]*)`,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "inv-num-bare-id",
			FieldName:        invoice.FieldInvoiceNumber,
			Category:         "identifier",
			Regex:            `\b([A-Z]{2,6}-\d{2,}(?:-\d+)*)\b`,
			ContextKeywords:  []string{"invoice"},
			Priority:         20,
			IsActive:         true,
			ConfidenceWeight: 0.65,
		},
		{
			ID:               "inv-date-labeled",
			FieldName:        invoice.FieldInvoiceDate,
			Category:         "date",
			Regex:            `(?i)\b(?:invoice\s+date|date\s+of\s+invoice|issue[d]?\s+(?:date|on)|bill\s+date)\s*[:.]?\s*` + dateShape,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "inv-date-generic",
			FieldName:        invoice.FieldInvoiceDate,
			Category:         "date",
			Regex:            `(?i)\bdate\s*[:.]?\s*` + dateShape,
			ContextKeywords:  []string{"invoice", "date"},
			Priority:         20,
			IsActive:         true,
			ConfidenceWeight: 0.6,
		},
		{
			ID:               "due-date-labeled",
			FieldName:        invoice.FieldDueDate,
			Category:         "date",
			Regex:            `(?i)\b(?:due\s+date|payment\s+due|date\s+due|due\s+(?:on|by)|due)\s*[:.]?\s*` + dateShape,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "total-labeled",
			FieldName:        invoice.FieldTotalAmount,
			Category:         "amount",
			Regex:            `(?i)\b(?:total\s+(?:amount\s+)?due|amount\s+due|grand\s+total|total\s+amount|balance\s+due|invoice\s+total|total)\s*[:.]?\s*` + moneyPrefix + amountShape,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "subtotal-labeled",
			FieldName:        invoice.FieldSubtotal,
			Category:         "amount",
			Regex:            `(?i)\bsub\s*-?\s*total\s*[:.]?\s*` + moneyPrefix + amountShape,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "tax-labeled",
			FieldName:        invoice.FieldTaxAmount,
			Category:         "amount",
			Regex:            `(?i)\b(?:sales\s+tax|tax|vat|gst|hst)(?:\s*\(?\d{1,2}(?:\.\d+)?\s*%\)?)?\s*[:.]?\s*` + moneyPrefix + amountShape,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.85,
		},
		{
			ID:               "vendor-labeled",
			FieldName:        invoice.FieldVendorName,
			Category:         "party",
			Regex:            `(?i)\b(?:vendor|supplier|seller|sold\s+by|billed\s+from|remit\s+to|from)\s*[:.]\s*([A-Za-z0-9][\w .,&'()-]{2,})`,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.85,
		},
		{
			ID:               "vendor-company-suffix",
			FieldName:        invoice.FieldVendorName,
			Category:         "party",
			Regex:            `^\s*([A-Z][\w .,&'-]*\b(?:Inc|LLC|Ltd|GmbH|Corp|Co|S\.A\.|AG|BV|Oy)\.?)\s*$`,
			Priority:         20,
			IsActive:         true,
			ConfidenceWeight: 0.6,
		},
		{
			ID:               "po-labeled",
			FieldName:        invoice.FieldPurchaseOrder,
			Category:         "identifier",
			Regex:            `(?i)\b(?:purchase\s+order|p\.?o\.?)\s*(?:#|no\.?|number)?\s*[:.]?\s*([A-Za-z0-9][\w/-]+)`,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.85,
		},
		{
			ID:               "currency-labeled",
			FieldName:        invoice.FieldCurrency,
			Category:         "amount",
			Regex:            `(?i)\bcurrency\s*[:.]?\s*([A-Za-z]{3})\b`,
			Priority:         10,
			IsActive:         true,
			ConfidenceWeight: 0.9,
		},
		{
			ID:               "currency-iso-code",
			FieldName:        invoice.FieldCurrency,
			Category:         "amount",
			Regex:            `\b(USD|EUR|GBP|CAD|AUD|CHF|JPY)\b`,
			Priority:         20,
			IsActive:         true,
			ConfidenceWeight: 0.6,
		},
	}
}

// DefaultSnapshot compiles the built-in rules. Panics only on a programmer
// error in the defaults themselves, caught by tests.
func DefaultSnapshot() *Snapshot {
	s, err := NewSnapshot("builtin", DefaultPatterns())
	if err != nil {
		panic(err)
	}
	return s
}
