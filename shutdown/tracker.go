// Package shutdown coordinates graceful teardown: in-flight import
// tracking, prioritized cleanup functions, and double-signal forced
// exit.
package shutdown

import (
	"errors"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when starting an operation on a closed tracker.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// ErrWaitTimeout is returned when Wait times out before all operations complete.
var ErrWaitTimeout = errors.New("wait timeout: operations did not complete in time")

// OperationTracker counts in-flight operations so shutdown can wait for
// a running import or watch cycle to finish instead of cutting it off
// mid-upload.
type OperationTracker struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active int64
	closed bool
}

// NewOperationTracker creates an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start registers a new operation. Returns false when the tracker is
// closed; the caller must then reject the operation. On true the caller
// must call Done when finished.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.active++
	t.wg.Add(1)
	return true
}

// Done marks one operation complete.
func (t *OperationTracker) Done() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
	t.wg.Done()
}

// Close stops accepting new operations. In-flight ones continue.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// IsClosed reports whether the tracker has been closed.
func (t *OperationTracker) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// ActiveCount returns the number of in-flight operations.
func (t *OperationTracker) ActiveCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Wait blocks until all in-flight operations complete or the timeout
// expires, returning ErrWaitTimeout in the latter case.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}
