package core

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// WorkflowError represents a workflow-level error with an actionable
// instruction. Errors of this type are always surfaced to the user and
// never allowed to propagate as a crash.
type WorkflowError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *WorkflowError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for workflow errors
const (
	// Validation errors, caught before any network call
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeFileTooLarge      = "FILE_TOO_LARGE"
	ErrCodeFileUnreadable    = "FILE_UNREADABLE"

	// Connectivity and auth errors
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeAuthFailed         = "AUTH_FAILED"

	// Domain errors: transport succeeded, backend said no
	ErrCodeImportRejected   = "IMPORT_REJECTED"
	ErrCodeSupplierNotFound = "SUPPLIER_NOT_FOUND"
	ErrCodeSubmitInProgress = "SUBMIT_IN_PROGRESS"
	ErrCodeMissingConfig    = "MISSING_CONFIG"
	ErrCodeInvalidServerURL = "INVALID_SERVER_URL"
)

// ErrUnsupportedFormat returns a validation error for a file extension
// outside the supported set.
func ErrUnsupportedFormat(ext string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeUnsupportedFormat,
		Message: fmt.Sprintf("Unsupported file format '%s'", ext),
		Action:  "Select a .csv, .xls or .xlsx order file",
	}
}

// ErrFileTooLarge returns a validation error for an oversized file.
func ErrFileTooLarge(size, limit int64) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeFileTooLarge,
		Message: fmt.Sprintf("File is %d bytes, limit is %d bytes", size, limit),
		Action:  "Split the order export into smaller files and retry",
	}
}

// ErrFileUnreadable returns a validation error when the file cannot be read.
func ErrFileUnreadable(path string, reason error) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeFileUnreadable,
		Message: fmt.Sprintf("Cannot read file %s: %v", path, reason),
		Action:  "Check that the file exists and is readable",
	}
}

// ErrBackendUnreachable returns a connectivity error.
func ErrBackendUnreachable(serverURL string, reason error) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeBackendUnreachable,
		Message: fmt.Sprintf("Cannot reach MakerMatrix backend at %s: %v", serverURL, reason),
		Action:  "Check that MAKERMATRIX_SERVER is correct and the backend is running",
	}
}

// ErrAuthFailed returns an authentication error.
func ErrAuthFailed(reason string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeAuthFailed,
		Message: fmt.Sprintf("Authentication failed: %s", reason),
		Action:  "Verify MAKERMATRIX_API_KEY is correct and has not expired",
	}
}

// ErrImportRejected returns a domain error for an import the backend
// rejected inside an HTTP-level success response.
func ErrImportRejected(message string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeImportRejected,
		Message: fmt.Sprintf("Import rejected by backend: %s", message),
	}
}

// ErrSupplierNotFound returns a domain error for an unknown supplier id.
func ErrSupplierNotFound(id string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeSupplierNotFound,
		Message: fmt.Sprintf("Unknown supplier '%s'", id),
		Action:  "Run the suppliers command to list available suppliers",
	}
}

// ErrSubmitInProgress guards against double submission.
func ErrSubmitInProgress() *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeSubmitInProgress,
		Message: "An import submission is already in progress",
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidServerURL returns an error for a malformed server URL.
func ErrInvalidServerURL(raw string, reason string) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeInvalidServerURL,
		Message: fmt.Sprintf("Invalid MAKERMATRIX_SERVER URL '%s': %s", raw, reason),
		Action:  "Set MAKERMATRIX_SERVER to a valid URL (e.g., https://makermatrix.example.com)",
	}
}

// IsWorkflowError checks if an error is a WorkflowError, unwrapping as needed.
func IsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a WorkflowError.
func GetErrorCode(err error) string {
	if wfErr, ok := IsWorkflowError(err); ok {
		return wfErr.Code
	}
	return ""
}

// IsValidationError reports whether the error was caught before any
// network call was made.
func IsValidationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeUnsupportedFormat, ErrCodeFileTooLarge, ErrCodeFileUnreadable:
		return true
	default:
		return false
	}
}

// IsConnectivityError reports whether the error is a transport-level
// failure rather than a backend decision. Detection relies on the error
// chain (net and url errors), not on message-content sniffing.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if GetErrorCode(err) == ErrCodeBackendUnreachable {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
