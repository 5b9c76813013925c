package core

// ProgressReporter is the interface for reporting workflow progress to
// the user. Implementations render status lines on a terminal, append to
// a log, or update a notification surface.
//
// This interface enables dependency injection and testing of the workflow
// without a real terminal.
type ProgressReporter interface {
	// ReportProgress publishes an informational status update.
	ReportProgress(progress ImportProgress)

	// ReportError surfaces a recoverable error to the user.
	// Errors reported here never terminate the workflow by themselves.
	ReportError(err error)

	// ReportSuccess publishes a completion message exactly once per
	// workflow run.
	ReportSuccess(message string)
}

// NopReporter discards all progress updates. Useful in tests and for
// fire-and-forget watch-mode imports where the log carries the story.
type NopReporter struct{}

func (NopReporter) ReportProgress(ImportProgress) {}
func (NopReporter) ReportError(error)             {}
func (NopReporter) ReportSuccess(string)          {}
