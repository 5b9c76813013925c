package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/logging"
	"mm_importer/makermatrix"
	"mm_importer/metrics"
)

// taskFetcher is the slice of the MakerMatrix client the poller needs.
type taskFetcher interface {
	GetTask(ctx context.Context, taskID string) (*core.TaskState, error)
}

// Poller polls one backend task on a fixed interval and pushes each
// state change to an update callback. At most one ticker runs per
// Poller; Start stops any prior run first, and Stop is idempotent.
//
// Stopping the poller never cancels the backend task. Enrichment keeps
// running server-side; the client merely stops watching.
type Poller struct {
	client   taskFetcher
	interval time.Duration
	log      *logging.Logger
	stats    *metrics.Store

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	errOnce bool
}

// NewPoller creates a Poller with the given interval.
func NewPoller(client taskFetcher, interval time.Duration, log *logging.Logger) *Poller {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	return &Poller{client: client, interval: interval, log: log}
}

// WithStats attaches a session metrics store. Every issued poll and
// terminal task outcome is counted there.
func (p *Poller) WithStats(s *metrics.Store) *Poller {
	p.stats = s
	return p
}

// Start begins polling taskID, invoking onUpdate with every fetched
// state. Polling ends on a terminal status or when Stop (or the parent
// context) cancels it. A prior run, if any, is stopped first.
func (p *Poller) Start(ctx context.Context, taskID string, onUpdate func(*core.TaskState)) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.errOnce = false
	p.mu.Unlock()

	go p.run(ctx, taskID, onUpdate, done)
}

func (p *Poller) run(ctx context.Context, taskID string, onUpdate func(*core.TaskState), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Debug("polling task", zap.String("task_id", taskID),
		zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if p.stats != nil {
			p.stats.RecordPoll()
		}
		state, err := p.client.GetTask(ctx, taskID)
		if err != nil {
			p.observeError(taskID, err)
			continue
		}

		onUpdate(state)

		if state.Status.IsTerminal() {
			if p.stats != nil {
				p.stats.RecordTaskOutcome(state.Status)
			}
			p.log.Info("task reached terminal status",
				zap.String("task_id", taskID),
				zap.String("status", string(state.Status)))
			return
		}
	}
}

// observeError logs a poll failure. A 404 is transient noise (the task
// may not be registered yet); other errors are logged at warn once and
// at debug on repeats so a flapping backend does not flood the log.
func (p *Poller) observeError(taskID string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, makermatrix.ErrTaskNotFound) {
		p.log.Debug("task not registered yet", zap.String("task_id", taskID))
		return
	}

	p.mu.Lock()
	first := !p.errOnce
	p.errOnce = true
	p.mu.Unlock()

	if first {
		p.log.Warn("task poll failed", zap.String("task_id", taskID), zap.Error(err))
	} else {
		p.log.Debug("task poll failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

// Stop cancels the active poll loop and waits for it to exit. Safe to
// call any number of times, including before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
