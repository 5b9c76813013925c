package metrics

import (
	"sync"
	"time"

	"mm_importer/core"
)

// DefaultHistoryCapacity bounds the in-memory outcome ring.
const DefaultHistoryCapacity = 50

// Store is the thread-safe session metrics accumulator. One Store lives
// per process; the workflow and watch loop write, the exit summary and
// history command read.
type Store struct {
	mu sync.RWMutex

	startedAt time.Time

	importsTotal   int64
	importsSucceed int64
	importsFailed  int64
	partsImported  int64
	partsFailed    int64
	partsSkipped   int64
	pollsIssued    int64
	tasksCompleted int64
	tasksFailed    int64

	bySupplier map[string]SupplierStats

	// ring buffer of recent outcomes
	history []ImportOutcome
	cap     int
	head    int
	size    int
}

// NewStore creates a Store with the given history capacity; zero or
// negative uses the default.
func NewStore(historyCapacity int) *Store {
	if historyCapacity <= 0 {
		historyCapacity = DefaultHistoryCapacity
	}
	return &Store{
		startedAt:  time.Now(),
		bySupplier: make(map[string]SupplierStats),
		history:    make([]ImportOutcome, historyCapacity),
		cap:        historyCapacity,
	}
}

// RecordImport folds one finished import into the session totals.
func (s *Store) RecordImport(outcome ImportOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now()
	}

	s.importsTotal++
	if outcome.Succeeded {
		s.importsSucceed++
	} else {
		s.importsFailed++
	}
	s.partsImported += int64(outcome.Imported)
	s.partsFailed += int64(outcome.Failed)
	s.partsSkipped += int64(outcome.Skipped)

	stats := s.bySupplier[outcome.SupplierID]
	stats.Imports++
	if outcome.Succeeded {
		stats.Successes++
	}
	stats.PartsImported += int64(outcome.Imported)
	stats.TotalDuration += outcome.Duration
	s.bySupplier[outcome.SupplierID] = stats

	s.history[s.head] = outcome
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}
}

// RecordPoll counts one task status request.
func (s *Store) RecordPoll() {
	s.mu.Lock()
	s.pollsIssued++
	s.mu.Unlock()
}

// RecordTaskOutcome counts a terminal enrichment task status.
func (s *Store) RecordTaskOutcome(status core.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case core.TaskCompleted:
		s.tasksCompleted++
	case core.TaskFailed:
		s.tasksFailed++
	}
}

// Snapshot returns a copy of the current totals, newest outcome first.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySupplier := make(map[string]SupplierStats, len(s.bySupplier))
	for k, v := range s.bySupplier {
		bySupplier[k] = v
	}

	recent := make([]ImportOutcome, 0, s.size)
	for i := 0; i < s.size; i++ {
		idx := (s.head - 1 - i + s.cap) % s.cap
		recent = append(recent, s.history[idx])
	}

	return Snapshot{
		StartedAt:      s.startedAt,
		Uptime:         time.Since(s.startedAt),
		ImportsTotal:   s.importsTotal,
		ImportsSucceed: s.importsSucceed,
		ImportsFailed:  s.importsFailed,
		PartsImported:  s.partsImported,
		PartsFailed:    s.partsFailed,
		PartsSkipped:   s.partsSkipped,
		PollsIssued:    s.pollsIssued,
		TasksCompleted: s.tasksCompleted,
		TasksFailed:    s.tasksFailed,
		BySupplier:     bySupplier,
		RecentOutcomes: recent,
	}
}
