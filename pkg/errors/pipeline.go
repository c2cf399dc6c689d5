package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified pipeline failure.
type ErrorCode string

const (
	ErrClassificationFailure ErrorCode = "classification_failure"
	ErrBackendTimeout        ErrorCode = "backend_timeout"
	ErrBackendFailure        ErrorCode = "backend_failure"
	ErrOCRToolMissing        ErrorCode = "ocr_tool_missing"
	ErrContextCancelled      ErrorCode = "context_cancelled"
	ErrPatternCompile        ErrorCode = "pattern_compile"
	ErrEmptyContent          ErrorCode = "empty_content"
	ErrDuplicateInvoice      ErrorCode = "duplicate_invoice"
	ErrStorageFailure        ErrorCode = "storage_failure"
	ErrProcessingFailure     ErrorCode = "processing_failure"
)

// PipelineError is a structured error for extraction pipeline failures.
type PipelineError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *PipelineError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)",
			e.Code, e.Stage, e.Duration.Truncate(time.Millisecond), e.Timeout.Truncate(time.Millisecond))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Classify inspects an error and returns a *PipelineError with the
// appropriate code. Unknown errors get ErrProcessingFailure.
func Classify(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	pe := &PipelineError{
		Stage: stage,
		Cause: err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		pe.Code = ErrBackendTimeout
		pe.Message = "operation timed out"
		return pe
	}
	if errors.Is(err, context.Canceled) {
		pe.Code = ErrContextCancelled
		pe.Message = "operation cancelled"
		return pe
	}
	if errors.Is(err, ErrUnreadableDocument) {
		pe.Code = ErrClassificationFailure
		pe.Message = err.Error()
		return pe
	}
	if errors.Is(err, ErrEmptyDocument) {
		pe.Code = ErrEmptyContent
		pe.Message = err.Error()
		return pe
	}
	if errors.Is(err, ErrDuplicateCheckUnavailable) {
		pe.Code = ErrStorageFailure
		pe.Message = err.Error()
		return pe
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "executable file not found"),
		strings.Contains(lower, "no such file or directory") && containsAny(lower, "tesseract", "pdftotext", "pdftoppm"):
		pe.Code = ErrOCRToolMissing
	case strings.Contains(lower, "error parsing regexp"),
		strings.Contains(lower, "missing closing"):
		pe.Code = ErrPatternCompile
	case strings.Contains(lower, "duplicate"):
		pe.Code = ErrDuplicateInvoice
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "broken pipe"):
		pe.Code = ErrStorageFailure
	default:
		pe.Code = ErrProcessingFailure
	}
	pe.Message = msg
	return pe
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether the error carries a backend-timeout code.
func IsTimeout(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == ErrBackendTimeout
	}
	return false
}

// IsErrorRetryable reports whether the error is transient and worth
// retrying, according to the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if info, ok := ErrorCodeRegistry[pe.Code]; ok {
			return info.Retryable
		}
	}
	return false
}
