// Package validate evaluates stateless business rules over extracted
// fields and produces typed issues. Errors block auto-approval; warnings
// ride along with any decision and carry suggested corrections where one
// can be derived.
package validate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// requiredFields must be present or the record cannot be auto-approved.
var requiredFields = []string{
	invoice.FieldInvoiceNumber,
	invoice.FieldTotalAmount,
	invoice.FieldVendorName,
}

// normalInvoiceNumberRe is the expected identifier shape. Anything else is
// flagged with a normalized suggestion, not rejected.
var normalInvoiceNumberRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/_-]*$`)

// DuplicateChecker is the persistence collaborator's duplicate-detection
// surface. The validator never queries storage on its own.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, vendor, invoiceNumber string) (matched bool, matchedID string, err error)
}

// Validator runs the rule set. A nil DuplicateChecker disables the
// duplicate rule.
type Validator struct {
	dup    DuplicateChecker
	logger logging.Logger
}

func New(dup DuplicateChecker, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Validator{dup: dup, logger: logger}
}

// Validate evaluates every rule and returns the accumulated issues.
func (v *Validator) Validate(ctx context.Context, found []invoice.ExtractedField) []invoice.ValidationIssue {
	byName := make(map[string]invoice.ExtractedField, len(found))
	for _, f := range found {
		byName[f.Name] = f
	}

	var issues []invoice.ValidationIssue
	issues = append(issues, requiredRules(byName)...)
	issues = append(issues, formatRules(byName)...)
	issues = append(issues, businessRules(byName)...)
	issues = append(issues, v.duplicateRule(ctx, byName)...)

	if len(issues) > 0 {
		v.logger.Debug("validation issues",
			logging.F("count", len(issues)),
			logging.F("blocking", invoice.HasErrors(issues)))
	}
	return issues
}

func requiredRules(byName map[string]invoice.ExtractedField) []invoice.ValidationIssue {
	var issues []invoice.ValidationIssue
	for _, name := range requiredFields {
		if f, ok := byName[name]; !ok || f.Value == "" {
			issues = append(issues, invoice.ValidationIssue{
				Field:   name,
				Kind:    invoice.IssueError,
				Code:    invoice.CodeRequiredFieldMissing,
				Message: fmt.Sprintf("required field %s was not found", name),
			})
		}
	}
	return issues
}

func formatRules(byName map[string]invoice.ExtractedField) []invoice.ValidationIssue {
	var issues []invoice.ValidationIssue

	if total, ok := byName[invoice.FieldTotalAmount]; ok && total.Value != "" {
		if amt, err := fields.ParseAmount(total.Value); err == nil && !amt.IsPositive() {
			issues = append(issues, invoice.ValidationIssue{
				Field:   invoice.FieldTotalAmount,
				Kind:    invoice.IssueError,
				Code:    invoice.CodeNonPositiveAmount,
				Message: fmt.Sprintf("total amount %s is not positive", total.Value),
			})
		}
	}

	if num, ok := byName[invoice.FieldInvoiceNumber]; ok && num.Value != "" {
		if !normalInvoiceNumberRe.MatchString(num.Value) {
			issues = append(issues, invoice.ValidationIssue{
				Field:     invoice.FieldInvoiceNumber,
				Kind:      invoice.IssueWarning,
				Code:      invoice.CodeUnusualInvoiceNumber,
				Message:   fmt.Sprintf("invoice number %q has an unusual shape", num.Value),
				Suggested: fields.NormalizeIdentifier(num.Value),
			})
		}
	}

	for _, name := range []string{invoice.FieldInvoiceDate, invoice.FieldDueDate} {
		if f, ok := byName[name]; ok && f.Value != "" {
			if _, err := fields.ParseDate(f.Value, ""); err != nil {
				issues = append(issues, invoice.ValidationIssue{
					Field:   name,
					Kind:    invoice.IssueWarning,
					Code:    invoice.CodeUnparsableDate,
					Message: fmt.Sprintf("%s %q does not parse as a date", name, f.Value),
				})
			}
		}
	}
	return issues
}

func businessRules(byName map[string]invoice.ExtractedField) []invoice.ValidationIssue {
	invF, okInv := byName[invoice.FieldInvoiceDate]
	dueF, okDue := byName[invoice.FieldDueDate]
	if !okInv || !okDue {
		return nil
	}
	invDate, err1 := fields.ParseDate(invF.Value, "")
	dueDate, err2 := fields.ParseDate(dueF.Value, "")
	if err1 != nil || err2 != nil {
		return nil
	}
	if dueDate.Before(invDate) {
		return []invoice.ValidationIssue{{
			Field:   invoice.FieldDueDate,
			Kind:    invoice.IssueError,
			Code:    invoice.CodeDueBeforeInvoiceDate,
			Message: fmt.Sprintf("due date %s precedes invoice date %s", dueF.Value, invF.Value),
		}}
	}
	return nil
}

// duplicateRule asks the persistence collaborator whether this vendor and
// invoice number were seen before. An unavailable checker is logged and
// skipped, never fabricated into a result.
func (v *Validator) duplicateRule(ctx context.Context, byName map[string]invoice.ExtractedField) []invoice.ValidationIssue {
	if v.dup == nil {
		return nil
	}
	num := byName[invoice.FieldInvoiceNumber].Value
	if num == "" {
		return nil
	}
	vendor := byName[invoice.FieldVendorName].Value

	matched, matchedID, err := v.dup.IsDuplicate(ctx, vendor, fields.NormalizeIdentifier(num))
	if err != nil {
		v.logger.Warn("duplicate check unavailable", logging.Err(err))
		return nil
	}
	if !matched {
		return nil
	}
	return []invoice.ValidationIssue{{
		Field:   invoice.FieldInvoiceNumber,
		Kind:    invoice.IssueError,
		Code:    invoice.CodeDuplicateInvoice,
		Message: fmt.Sprintf("invoice %s already exists as %s", num, matchedID),
	}}
}
