package constants

import "fmt"

// ============================================================================
// REQUEST ERRORS
// ============================================================================

const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrInvalidRequestBody = "Invalid request body"
	ErrMethodNotAllowed   = "Method Not Allowed"
)

// ============================================================================
// FILE UPLOAD ERRORS
// ============================================================================

const (
	ErrUnsupportedFileType = "unsupported file type %q, upload .xlsx, .xls or .csv"
	ErrFileTooLarge        = "File size exceeds the maximum limit"
	ErrFileParsingFailed   = "Failed to parse file contents: %v"
	ErrEmptyFile           = "Uploaded file is empty"
	ErrMissingColumns      = "File is missing required columns: %s"
)

// ============================================================================
// INPUT VALIDATION ERRORS
// ============================================================================

const (
	ErrMissingRequiredField = "Required field '%s' is missing"
	ErrInvalidFieldValue    = "Invalid value for field '%s': %s"
	ErrUnknownStage         = "Unknown stage '%s', expected I, II, III or IV"
	ErrUnknownMetric        = "Unknown metric '%s'"
	ErrUnknownGroupColumn   = "Cannot group by '%s'"
)

// ============================================================================
// SNAPSHOT ERRORS
// ============================================================================

const (
	ErrSnapshotNotFound = "No %s snapshot for invoice %s and supplier %s"
	ErrSnapshotFailed   = "Snapshot could not be written: %v"
)

// ============================================================================
// GENERAL ERRORS
// ============================================================================

const (
	ErrInternalServer = "Internal server error. Please contact support"
	ErrNoDataFound    = "No data found matching your criteria"
)

// ============================================================================
// SUCCESS MESSAGES
// ============================================================================

const (
	SuccessStageSaved = "%s saved, %d items"
)

// ============================================================================
// HELPER FUNCTIONS TO FORMAT ERRORS WITH CONTEXT
// ============================================================================

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}

// FormatFieldError formats an error for a specific field
func FormatFieldError(fieldName string, reason string) string {
	return fmt.Sprintf(ErrInvalidFieldValue, fieldName, reason)
}

// FormatMissingFieldError formats a missing field error
func FormatMissingFieldError(fieldName string) string {
	return fmt.Sprintf(ErrMissingRequiredField, fieldName)
}
