// Package metrics aggregates per-session import statistics: counts per
// supplier, poll totals, and a bounded history of recent outcomes. The
// snapshot is logged at exit and rendered by the history command.
package metrics

import "time"

// ImportOutcome is one finished import, as recorded in the session.
type ImportOutcome struct {
	Filename   string        `json:"filename"`
	SupplierID string        `json:"supplier_id"`
	Imported   int           `json:"imported"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	TaskStatus string        `json:"task_status,omitempty"`
	Succeeded  bool          `json:"succeeded"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// SupplierStats aggregates outcomes for one supplier.
type SupplierStats struct {
	Imports       int64         `json:"imports"`
	Successes     int64         `json:"successes"`
	PartsImported int64         `json:"parts_imported"`
	TotalDuration time.Duration `json:"total_duration"`
}

// Snapshot is a point-in-time copy of the session metrics.
type Snapshot struct {
	StartedAt       time.Time                `json:"started_at"`
	Uptime          time.Duration            `json:"uptime"`
	ImportsTotal    int64                    `json:"imports_total"`
	ImportsSucceed  int64                    `json:"imports_succeeded"`
	ImportsFailed   int64                    `json:"imports_failed"`
	PartsImported   int64                    `json:"parts_imported"`
	PartsFailed     int64                    `json:"parts_failed"`
	PartsSkipped    int64                    `json:"parts_skipped"`
	PollsIssued     int64                    `json:"polls_issued"`
	TasksCompleted  int64                    `json:"tasks_completed"`
	TasksFailed     int64                    `json:"tasks_failed"`
	BySupplier      map[string]SupplierStats `json:"by_supplier"`
	RecentOutcomes  []ImportOutcome          `json:"recent_outcomes"`
}
