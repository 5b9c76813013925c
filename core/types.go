// Package core provides shared types, configuration, and error handling
// for the MakerMatrix import agent.
package core

import "time"

// TaskStatus is the lifecycle status of a backend enrichment task.
type TaskStatus string

// Task statuses reported by the backend task endpoint.
const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true for statuses that end polling.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// ConfigurationStatus describes how completely a supplier is configured
// on the backend.
type ConfigurationStatus string

const (
	ConfigNotConfigured ConfigurationStatus = "not_configured"
	ConfigPartial       ConfigurationStatus = "partial"
	ConfigConfigured    ConfigurationStatus = "configured"
)

// FilePreview is a non-authoritative, truncated rendering of an order file,
// used to confirm parser selection before committing an import.
//
// A workflow holds at most one live FilePreview; selecting a new file
// replaces it wholesale.
type FilePreview struct {
	// Filename is the base name of the selected file
	Filename string
	// Size in bytes
	Size int64
	// MimeType guessed from the extension
	MimeType string
	// DetectedParser is the supplier id inferred from the filename or
	// content, empty if detection failed
	DetectedParser string
	// Headers is the ordered header row
	Headers []string
	// SampleRows maps header name to cell value, one map per sampled row
	SampleRows []map[string]string
	// TotalRows is the data row count (excluding the header row)
	TotalRows int
	// IsSupported is false when neither the local heuristic nor the
	// backend could produce a usable preview
	IsSupported bool
	// ValidationErrors holds human-readable problems found during preview
	ValidationErrors []string
	// FileFormat is the normalized extension: "csv", "xls" or "xlsx"
	FileFormat string
}

// SupplierCapability describes one importer/parser the backend exposes.
// Fetched once per workflow session and read-only to the caller.
type SupplierCapability struct {
	ID                     string
	DisplayName            string
	SupportedFileTypes     []string
	ImportAvailable        bool
	IsConfigured           bool
	ConfigurationStatus    ConfigurationStatus
	EnrichmentCapabilities []string
	EnrichmentAvailable    bool
	MissingCredentials     []string

	// AutoDetected is set by the resolver when this supplier was chosen
	// from the preview's detected parser rather than by the user.
	AutoDetected bool
}

// SupportsFileType reports whether the supplier accepts the given
// normalized extension ("csv", "xls", "xlsx").
func (s *SupplierCapability) SupportsFileType(format string) bool {
	if len(s.SupportedFileTypes) == 0 {
		return true
	}
	for _, ft := range s.SupportedFileTypes {
		if ft == format {
			return true
		}
	}
	return false
}

// OrderInfo holds the user-editable order metadata attached to an import.
// Extraction pre-seeds it on a best-effort basis; it is never authoritative.
type OrderInfo struct {
	OrderNumber string
	// OrderDate is an ISO-8601 date (YYYY-MM-DD); kept as a string since
	// the backend accepts it verbatim
	OrderDate string
	Notes     string
}

// IsEmpty returns true when no field is set.
func (o OrderInfo) IsEmpty() bool {
	return o.OrderNumber == "" && o.OrderDate == "" && o.Notes == ""
}

// Merge fills only the fields of o that are still empty with values from
// extracted. Non-empty (user-entered) fields are never overwritten.
func (o *OrderInfo) Merge(extracted OrderInfo) {
	if o.OrderNumber == "" {
		o.OrderNumber = extracted.OrderNumber
	}
	if o.OrderDate == "" {
		o.OrderDate = extracted.OrderDate
	}
	if o.Notes == "" {
		o.Notes = extracted.Notes
	}
}

// ImportProgress is the observable state of a running import, mutated only
// by poll responses (or synthesized as complete when no task exists).
type ImportProgress struct {
	ProcessedParts     int
	TotalParts         int
	CurrentOperation   string
	IsComplete         bool
	TaskID             string
	TaskStatus         TaskStatus
	ProgressPercentage float64
}

// ImportResult is the structured outcome of one import submission.
// Immutable once produced.
type ImportResult struct {
	ImportedCount int
	FailedCount   int
	SkippedCount  int
	Warnings      []string
	// SuccessParts and FailedParts are opaque backend records, passed
	// through for display only
	SuccessParts []map[string]any
	FailedParts  []map[string]any
	OrderID      string
	// EnrichmentTaskID is non-empty when the backend scheduled an
	// enrichment task for the imported parts
	EnrichmentTaskID string
}

// TotalParts returns the number of rows the backend attempted.
func (r *ImportResult) TotalParts() int {
	return r.ImportedCount + r.FailedCount + r.SkippedCount
}

// TaskState is one poll response from the backend task endpoint.
type TaskState struct {
	ID                 string
	Status             TaskStatus
	ProgressPercentage float64
	CurrentStep        string
	ErrorMessage       string
	ResultData         map[string]any
	PolledAt           time.Time
}
