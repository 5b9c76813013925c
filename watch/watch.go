// Package watch implements the unattended drop-directory mode: scan a
// directory on an interval, import every supported order file found,
// and move processed files to an archive directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/intake"
	"mm_importer/logging"
	"mm_importer/metrics"
)

// importRunner runs one full import; satisfied by workflow.Runner.
type importRunner interface {
	Run(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities []string) (*core.ImportResult, core.TaskStatus, error)
}

// fileSelector validates and previews a candidate file; satisfied by
// intake.Intake.
type fileSelector interface {
	SelectFile(ctx context.Context, path, supplierID string) (*core.FilePreview, error)
	ExtractOrderInfo(ctx context.Context, filename, parserID string) core.OrderInfo
}

// Recorder persists one finished watch import; satisfied by
// db.HistoryStore via a thin closure in main. taskStatus is the
// enrichment task's terminal state, empty when no task was scheduled.
type Recorder func(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities string, result *core.ImportResult, taskStatus core.TaskStatus, duration time.Duration, runErr error)

// Service is the drop-directory scanner. Each cycle lists the watch
// directory, imports supported files whose supplier can be detected,
// and archives them. Undetectable or failing files stay in place and
// are retried next cycle; after maxAttempts failures they move to the
// failed directory so one bad file cannot wedge the loop.
type Service struct {
	cfg        *core.Config
	selector   fileSelector
	runner     importRunner
	defaults   map[string][]string
	record     Recorder
	sessionLog *metrics.Store
	log        *logging.Logger

	attempts map[string]int
}

// maxAttempts is how many cycles a failing file is retried before it is
// moved aside.
const maxAttempts = 3

// NewService wires a watch Service. record may be nil when history is
// disabled; sessionLog may be nil to skip session metrics.
func NewService(cfg *core.Config, selector fileSelector, runner importRunner, defaults map[string][]string, record Recorder, sessionLog *metrics.Store, log *logging.Logger) *Service {
	return &Service{
		cfg:        cfg,
		selector:   selector,
		runner:     runner,
		defaults:   defaults,
		record:     record,
		sessionLog: sessionLog,
		log:        log,
		attempts:   make(map[string]int),
	}
}

// Run scans on the configured interval until the context ends. An
// immediate first cycle runs before the first tick.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.WatchDir, 0o755); err != nil {
		return fmt.Errorf("creating watch directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	s.log.Info("watch mode started",
		zap.String("dir", s.cfg.WatchDir),
		zap.Duration("interval", s.cfg.WatchInterval))

	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("watch cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.log.Info("watch mode stopping")
			return nil
		case <-time.After(s.cfg.WatchInterval):
		}
	}
}

// runCycle processes every candidate file currently in the watch dir.
func (s *Service) runCycle(ctx context.Context) error {
	candidates, err := s.listCandidates()
	if err != nil {
		return err
	}

	for _, path := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.processFile(ctx, path)
	}
	return nil
}

// listCandidates returns supported files in the watch dir, oldest first
// so a backlog drains in arrival order.
func (s *Service) listCandidates() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("reading watch directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var out []candidate
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if intake.FileFormat(e.Name()) == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, candidate{path: filepath.Join(s.cfg.WatchDir, e.Name()), mod: info.ModTime()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].mod.Before(out[j].mod) })
	paths := make([]string, len(out))
	for i, c := range out {
		paths[i] = c.path
	}
	return paths, nil
}

func (s *Service) processFile(ctx context.Context, path string) {
	name := filepath.Base(path)
	start := time.Now()

	preview, err := s.selector.SelectFile(ctx, path, "")
	if err != nil {
		s.fail(ctx, path, "", nil, start, err)
		return
	}
	if preview.DetectedParser == "" {
		// Unattended mode has nobody to pick a supplier; skip and retry,
		// the file may be renamed or claimed manually
		s.log.Warn("cannot detect supplier, leaving file for manual import",
			zap.String("file", name))
		s.noteAttempt(ctx, path, "", nil, start, fmt.Errorf("no supplier detected for %s", name))
		return
	}
	supplierID := preview.DetectedParser

	info := s.selector.ExtractOrderInfo(ctx, path, supplierID)
	capabilities := s.capabilitiesFor(supplierID)

	result, taskStatus, err := s.runner.Run(ctx, path, supplierID, info, capabilities)
	duration := time.Since(start)

	if s.record != nil {
		s.record(ctx, path, supplierID, info, strings.Join(capabilities, ","), result, taskStatus, duration, err)
	}
	if s.sessionLog != nil {
		outcome := metrics.ImportOutcome{
			Filename:   name,
			SupplierID: supplierID,
			TaskStatus: string(taskStatus),
			Succeeded:  err == nil,
			Duration:   duration,
		}
		if result != nil {
			outcome.Imported = result.ImportedCount
			outcome.Failed = result.FailedCount
			outcome.Skipped = result.SkippedCount
		}
		s.sessionLog.RecordImport(outcome)
	}

	if err != nil {
		s.noteAttempt(ctx, path, supplierID, result, start, err)
		return
	}

	delete(s.attempts, path)
	s.log.Info("imported",
		zap.String("file", name),
		zap.String("supplier", supplierID),
		zap.Int("parts", result.ImportedCount),
		zap.Duration("duration", duration))

	if err := s.archive(path, s.cfg.ArchiveDir); err != nil {
		s.log.Error("archiving failed", zap.String("file", name), zap.Error(err))
	}
}

// noteAttempt counts a failure and moves the file aside after too many.
func (s *Service) noteAttempt(ctx context.Context, path, supplierID string, result *core.ImportResult, start time.Time, err error) {
	s.attempts[path]++
	attempt := s.attempts[path]
	s.log.Warn("import attempt failed",
		zap.String("file", filepath.Base(path)),
		zap.Int("attempt", attempt),
		zap.Error(err))

	if attempt >= maxAttempts {
		delete(s.attempts, path)
		failedDir := filepath.Join(s.cfg.ArchiveDir, "failed")
		if mvErr := s.archive(path, failedDir); mvErr != nil {
			s.log.Error("moving failed file aside", zap.Error(mvErr))
		} else {
			s.log.Warn("file moved to failed directory after repeated errors",
				zap.String("file", filepath.Base(path)))
		}
	}
}

func (s *Service) fail(ctx context.Context, path, supplierID string, result *core.ImportResult, start time.Time, err error) {
	if s.record != nil {
		s.record(ctx, path, supplierID, core.OrderInfo{}, "", result, "", time.Since(start), err)
	}
	s.noteAttempt(ctx, path, supplierID, result, start, err)
}

func (s *Service) capabilitiesFor(supplierID string) []string {
	if s.defaults == nil {
		return nil
	}
	if caps, ok := s.defaults[supplierID]; ok {
		return caps
	}
	return s.defaults["default"]
}

// archive moves the file into dir, deduplicating the name with a
// timestamp suffix when needed.
func (s *Service) archive(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))
	}
	return os.Rename(path, target)
}
