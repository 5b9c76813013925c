package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"mm_importer/core"
)

// terminalReporter renders import progress for an interactive terminal.
// Progress updates rewrite a single status line; errors and the final
// outcome get their own lines. Safe for concurrent use since poll
// callbacks arrive from the poller goroutine.
type terminalReporter struct {
	out io.Writer

	mu       sync.Mutex
	lineOpen bool
	lineLen  int
}

func newTerminalReporter(out io.Writer) *terminalReporter {
	return &terminalReporter{out: out}
}

func (r *terminalReporter) ReportProgress(p core.ImportProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("%s %d/%d parts (%.0f%%)",
		statusColor(p.TaskStatus).Sprintf("%-10s", p.TaskStatus),
		p.ProcessedParts, p.TotalParts, p.ProgressPercentage)
	if p.CurrentOperation != "" {
		line += " " + color.New(color.FgHiBlack).Sprint(p.CurrentOperation)
	}

	pad := ""
	if n := r.lineLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(r.out, "\r%s%s", line, pad)
	r.lineOpen = true
	r.lineLen = len(line)
}

func (r *terminalReporter) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLine()

	color.New(color.FgRed, color.Bold).Fprintf(r.out, "✗ %v\n", err)
	if we, ok := core.IsWorkflowError(err); ok && we.Action != "" {
		color.New(color.FgHiBlack).Fprintf(r.out, "  %s\n", we.Action)
	}
}

func (r *terminalReporter) ReportSuccess(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLine()

	color.New(color.FgGreen, color.Bold).Fprintf(r.out, "✓ %s\n", msg)
}

// closeLine terminates an in-progress status line so the next message
// starts on a fresh line. Callers must hold r.mu.
func (r *terminalReporter) closeLine() {
	if r.lineOpen {
		fmt.Fprintln(r.out)
		r.lineOpen = false
		r.lineLen = 0
	}
}

func statusColor(s core.TaskStatus) *color.Color {
	switch s {
	case core.TaskCompleted:
		return color.New(color.FgGreen)
	case core.TaskFailed:
		return color.New(color.FgRed)
	case core.TaskCancelled:
		return color.New(color.FgYellow)
	case core.TaskRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}
