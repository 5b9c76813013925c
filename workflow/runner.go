package workflow

import (
	"context"
	"fmt"
	"time"

	"mm_importer/core"
	"mm_importer/logging"
)

// Runner ties submission and polling into one import run and feeds a
// ProgressReporter. It owns the poller: the run does not return until
// the enrichment task is terminal or the context ends, and the poller
// is always stopped on the way out.
type Runner struct {
	submitter *Submitter
	poller    *Poller
	reporter  core.ProgressReporter
	log       *logging.Logger

	submitTimeout time.Duration
}

// NewRunner wires a Runner from its parts. reporter may be nil; the
// NopReporter is used then.
func NewRunner(submitter *Submitter, poller *Poller, reporter core.ProgressReporter, submitTimeout time.Duration, log *logging.Logger) *Runner {
	if reporter == nil {
		reporter = core.NopReporter{}
	}
	return &Runner{
		submitter:     submitter,
		poller:        poller,
		reporter:      reporter,
		log:           log,
		submitTimeout: submitTimeout,
	}
}

// Run submits the file and tracks enrichment to completion. The returned
// result is the import outcome and the status is the enrichment task's
// last observed state, empty when the backend scheduled no task; progress
// is delivered through the reporter. A failed enrichment task is not a
// run error (the parts are already imported), so callers that persist the
// outcome must look at the returned status, not the error.
func (r *Runner) Run(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities []string) (*core.ImportResult, core.TaskStatus, error) {
	submitCtx := ctx
	if r.submitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, r.submitTimeout)
		defer cancel()
	}

	result, err := r.submitter.Submit(submitCtx, path, supplierID, info, capabilities)
	if err != nil {
		r.reporter.ReportError(err)
		return nil, "", err
	}

	taskID := ExtractTaskID(result)
	if taskID == "" {
		// No enrichment task: the import is already done
		tracker := core.NewCompletedTracker(result.TotalParts())
		r.reporter.ReportProgress(tracker.Progress())
		r.reporter.ReportSuccess(fmt.Sprintf("Imported %d parts", result.ImportedCount))
		return result, "", nil
	}

	tracker := core.NewProgressTracker(taskID, result.TotalParts())
	r.reporter.ReportProgress(tracker.Progress())

	taskDone := make(chan struct{})
	var taskErrMsg string
	r.poller.Start(ctx, taskID, func(state *core.TaskState) {
		tracker.ApplyTaskState(*state)
		r.reporter.ReportProgress(tracker.Progress())
		if state.Status.IsTerminal() {
			taskErrMsg = state.ErrorMessage
			close(taskDone)
		}
	})
	defer r.poller.Stop()

	select {
	case <-ctx.Done():
		return result, tracker.Progress().TaskStatus, ctx.Err()
	case <-taskDone:
	}

	final := tracker.Progress()
	switch final.TaskStatus {
	case core.TaskCompleted:
		r.reporter.ReportSuccess(fmt.Sprintf("Imported %d parts, enrichment complete", result.ImportedCount))
	case core.TaskFailed:
		r.reporter.ReportError(fmt.Errorf("enrichment task %s failed: %s", taskID, taskErrMsg))
	case core.TaskCancelled:
		r.reporter.ReportSuccess(fmt.Sprintf("Imported %d parts, enrichment cancelled", result.ImportedCount))
	}
	return result, final.TaskStatus, nil
}
