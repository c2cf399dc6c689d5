package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrClassificationFailure: {
		Code:            ErrClassificationFailure,
		Retryable:       false,
		Description:     "Document is structurally invalid or unparseable",
		SuggestedAction: "Inspect the source file; re-export or re-scan the document",
	},
	ErrBackendTimeout: {
		Code:            ErrBackendTimeout,
		Retryable:       true,
		Description:     "An extraction backend exceeded its time limit",
		SuggestedAction: "Raise the per-backend timeout or lower OCR DPI in the config",
	},
	ErrBackendFailure: {
		Code:            ErrBackendFailure,
		Retryable:       true,
		Description:     "An extraction backend failed outright",
		SuggestedAction: "Check the diagnostic trace: paperglass process --trace <file>",
	},
	ErrOCRToolMissing: {
		Code:            ErrOCRToolMissing,
		Retryable:       false,
		Description:     "An external OCR tool (pdftotext/pdftoppm/tesseract) is not installed",
		SuggestedAction: "Install poppler-utils and tesseract, or set tool paths in the config",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by caller or shutdown",
		SuggestedAction: "Check whether cancellation was intentional",
	},
	ErrPatternCompile: {
		Code:            ErrPatternCompile,
		Retryable:       false,
		Description:     "A field pattern's regular expression failed to compile",
		SuggestedAction: "Validate the pattern file: paperglass patterns check <file>",
	},
	ErrEmptyContent: {
		Code:            ErrEmptyContent,
		Retryable:       false,
		Description:     "Document byte buffer is empty",
		SuggestedAction: "Verify the ingestion collaborator delivered the file payload",
	},
	ErrDuplicateInvoice: {
		Code:            ErrDuplicateInvoice,
		Retryable:       false,
		Description:     "An invoice with the same vendor and number already exists",
		SuggestedAction: "Expected for resubmissions; review the matched invoice id",
	},
	ErrStorageFailure: {
		Code:            ErrStorageFailure,
		Retryable:       true,
		Description:     "The persistence collaborator is unreachable",
		SuggestedAction: "Check database/redis connectivity and credentials",
	},
	ErrProcessingFailure: {
		Code:            ErrProcessingFailure,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Check engine logs for the failing stage",
	},
}

// IsRetryable reports whether the given error code represents a transient,
// retryable failure.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested operator action for the code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check engine logs for more detail"
}

// GetDescription returns the human-readable description for the code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
