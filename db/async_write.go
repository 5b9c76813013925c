package db

import (
	"sync"
	"time"
)

// DefaultChannelCapacity is the default buffer size for the async write queue.
const DefaultChannelCapacity = 100

// DefaultDrainTimeout is the maximum time to wait for pending writes
// during shutdown.
const DefaultDrainTimeout = 30 * time.Second

// WriteOperation is one queued database write.
type WriteOperation struct {
	Query string
	Args  []any
	// Queued is when the operation entered the channel
	Queued time.Time
}

// WriteHandler processes one write operation. Implementations handle
// their own error logging; a failed write is dropped, not retried.
type WriteHandler func(op WriteOperation) error

// AsyncWriter moves history writes off the import hot path: callers
// queue operations on a buffered channel and a single goroutine drains
// it, preserving write order.
type AsyncWriter struct {
	writeChan    chan WriteOperation
	handler      WriteHandler
	drainTimeout time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewAsyncWriter creates an AsyncWriter with the default queue capacity.
func NewAsyncWriter(handler WriteHandler) *AsyncWriter {
	return &AsyncWriter{
		writeChan:    make(chan WriteOperation, DefaultChannelCapacity),
		handler:      handler,
		drainTimeout: DefaultDrainTimeout,
	}
}

// Start launches the background drain goroutine. Calling Start twice is
// a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		for op := range w.writeChan {
			_ = w.handler(op)
		}
	}()
}

// IsStarted reports whether the drain goroutine is running.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Write queues an operation without blocking. Returns false when the
// queue is full or the writer is not running; callers then fall back to
// a synchronous write.
func (w *AsyncWriter) Write(op WriteOperation) bool {
	// Queueing happens under the mutex so Stop cannot close the channel
	// between the started check and the send.
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return false
	}
	op.Queued = time.Now()
	select {
	case w.writeChan <- op:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for pending writes to drain, up to the
// drain timeout. Safe to call once; writes after Stop fall back to sync.
func (w *AsyncWriter) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	done := w.done
	close(w.writeChan)
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(w.drainTimeout):
	}
}
