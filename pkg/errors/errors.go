// Package errors provides common domain error types for the paperglass
// extraction engine.
//
// It defines sentinel errors for the failure taxonomy, used with
// errors.Is() checks across all packages. An unreadable document is fatal
// for a run; an empty buffer fails fast before the pipeline starts.
// Backend failures and missing fields are deliberately NOT errors: they are
// data carried in ExtractionAttempt and ValidationIssue values.
package errors

import "errors"

// Domain errors - sentinel errors for terminal conditions.
var (
	// ErrUnreadableDocument indicates the document is structurally invalid
	// or unparseable. Terminal: no extraction backend runs.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrEmptyDocument indicates a nil or zero-length byte buffer. The
	// pipeline refuses it before classification.
	ErrEmptyDocument = errors.New("empty document")

	// ErrNoPatterns indicates the pattern library snapshot has no active
	// patterns for any expected field.
	ErrNoPatterns = errors.New("no active patterns")

	// ErrSnapshotVersion indicates a pattern or template file declared an
	// unsupported schema version.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")

	// ErrDuplicateCheckUnavailable indicates the persistence collaborator
	// could not answer a duplicate query.
	ErrDuplicateCheckUnavailable = errors.New("duplicate check unavailable")
)

// IsUnreadable reports whether any error in err's chain is ErrUnreadableDocument.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadableDocument)
}

// IsEmptyDocument reports whether any error in err's chain is ErrEmptyDocument.
func IsEmptyDocument(err error) bool {
	return errors.Is(err, ErrEmptyDocument)
}

// IsNoPatterns reports whether any error in err's chain is ErrNoPatterns.
func IsNoPatterns(err error) bool {
	return errors.Is(err, ErrNoPatterns)
}
