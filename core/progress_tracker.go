package core

import (
	"sync"
)

// ProgressTracker holds the live ImportProgress for one workflow instance
// with thread-safe updates. The poller goroutine writes, the UI reads.
//
// At most one tracker is live per workflow; starting a new import replaces
// the tracker wholesale.
type ProgressTracker struct {
	mu       sync.RWMutex
	progress ImportProgress
}

// NewProgressTracker creates a tracker in the pending state.
// taskID may be empty when the import produced no enrichment task.
func NewProgressTracker(taskID string, totalParts int) *ProgressTracker {
	return &ProgressTracker{
		progress: ImportProgress{
			TotalParts: totalParts,
			TaskID:     taskID,
			TaskStatus: TaskPending,
		},
	}
}

// NewCompletedTracker creates a tracker that is already terminal. Used
// when the backend returned no task id so the UI still reaches closure.
func NewCompletedTracker(totalParts int) *ProgressTracker {
	return &ProgressTracker{
		progress: ImportProgress{
			ProcessedParts:     totalParts,
			TotalParts:         totalParts,
			CurrentOperation:   "Import complete",
			IsComplete:         true,
			TaskStatus:         TaskCompleted,
			ProgressPercentage: 100,
		},
	}
}

// ApplyTaskState updates the tracker from one poll response.
// Terminal statuses mark the progress complete.
func (p *ProgressTracker) ApplyTaskState(state TaskState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.TaskStatus = state.Status
	p.progress.CurrentOperation = state.CurrentStep

	pct := state.ProgressPercentage
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.progress.ProgressPercentage = pct

	if p.progress.TotalParts > 0 {
		p.progress.ProcessedParts = int(float64(p.progress.TotalParts) * pct / 100)
	}

	if state.Status.IsTerminal() {
		p.progress.IsComplete = true
		if state.Status == TaskCompleted {
			p.progress.ProgressPercentage = 100
			p.progress.ProcessedParts = p.progress.TotalParts
		}
	}
}

// SetOperation updates only the current operation text.
func (p *ProgressTracker) SetOperation(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress.CurrentOperation = op
}

// Progress returns a snapshot of the current progress.
func (p *ProgressTracker) Progress() ImportProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress
}

// IsComplete returns true once a terminal status has been applied.
func (p *ProgressTracker) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress.IsComplete
}
