package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"mm_importer/core"
	"mm_importer/logging"
	"mm_importer/metrics"
)

type fakeSelector struct{}

func (fakeSelector) SelectFile(_ context.Context, path, _ string) (*core.FilePreview, error) {
	base := filepath.Base(path)
	preview := &core.FilePreview{Filename: base, IsSupported: true, FileFormat: "csv"}
	switch {
	case base == "unreadable.csv":
		return nil, core.ErrFileUnreadable(path, errors.New("permission denied"))
	case base == "mystery.csv":
		// supported but no detectable supplier
	default:
		preview.DetectedParser = "lcsc"
	}
	return preview, nil
}

func (fakeSelector) ExtractOrderInfo(_ context.Context, filename, _ string) core.OrderInfo {
	return core.OrderInfo{OrderNumber: "ORD-" + filepath.Base(filename)}
}

type fakeRunner struct {
	failFor    map[string]error
	taskStatus core.TaskStatus
	runs       []string
}

func (f *fakeRunner) Run(_ context.Context, path, supplierID string, _ core.OrderInfo, _ []string) (*core.ImportResult, core.TaskStatus, error) {
	f.runs = append(f.runs, filepath.Base(path))
	if err, ok := f.failFor[filepath.Base(path)]; ok {
		return nil, "", err
	}
	return &core.ImportResult{ImportedCount: 2}, f.taskStatus, nil
}

func newTestService(t *testing.T, runner *fakeRunner) (*Service, *core.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := &core.Config{
		WatchDir:      filepath.Join(root, "inbox"),
		ArchiveDir:    filepath.Join(root, "inbox", "processed"),
		WatchInterval: time.Hour,
	}
	if err := os.MkdirAll(cfg.WatchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	log := logging.NewLoggerWithCore(zapcore.NewNopCore())
	svc := NewService(cfg, fakeSelector{}, runner, map[string][]string{
		"lcsc":    {"get_part_details"},
		"default": {"get_part_details"},
	}, nil, metrics.NewStore(10), log)
	return svc, cfg
}

func drop(t *testing.T, cfg *core.Config, name string) string {
	t.Helper()
	path := filepath.Join(cfg.WatchDir, name)
	if err := os.WriteFile(path, []byte("Part,Qty\nC1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCycle_ImportsAndArchives(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	drop(t, cfg, "LCSC_Exported__20240101_120000.csv")

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error: %v", err)
	}
	if len(runner.runs) != 1 {
		t.Fatalf("runs = %v, want 1 import", runner.runs)
	}

	archived, _ := os.ReadDir(cfg.ArchiveDir)
	if len(archived) != 1 {
		t.Errorf("archive has %d files, want 1", len(archived))
	}
	remaining, _ := os.ReadDir(cfg.WatchDir)
	files := 0
	for _, e := range remaining {
		if !e.IsDir() {
			files++
		}
	}
	if files != 0 {
		t.Errorf("watch dir still has %d files", files)
	}
}

func TestRunCycle_SkipsUnsupportedAndHidden(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	drop(t, cfg, "notes.txt")
	drop(t, cfg, ".partial.csv")

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(runner.runs) != 0 {
		t.Errorf("unsupported files imported: %v", runner.runs)
	}
}

func TestRunCycle_UndetectableLeftInPlace(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	path := drop(t, cfg, "mystery.csv")

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(runner.runs) != 0 {
		t.Errorf("undetectable file must not be imported: %v", runner.runs)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("undetectable file must stay in the watch dir for retry")
	}
}

func TestRunCycle_FailedFileMovedAsideAfterRetries(t *testing.T) {
	runner := &fakeRunner{failFor: map[string]error{
		"LCSC_bad.csv": core.ErrImportRejected("no valid rows"),
	}}
	svc, cfg := newTestService(t, runner)
	path := drop(t, cfg, "LCSC_bad.csv")

	for i := 0; i < maxAttempts; i++ {
		if err := svc.runCycle(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be moved aside after repeated failures")
	}
	failed, _ := os.ReadDir(filepath.Join(cfg.ArchiveDir, "failed"))
	if len(failed) != 1 {
		t.Errorf("failed dir has %d files, want 1", len(failed))
	}
	if len(runner.runs) != maxAttempts {
		t.Errorf("runs = %d, want %d", len(runner.runs), maxAttempts)
	}
}

func TestRunCycle_RecordsSessionMetrics(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	drop(t, cfg, "LCSC_a.csv")
	drop(t, cfg, "LCSC_b.csv")

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := svc.sessionLog.Snapshot()
	if snap.ImportsTotal != 2 || snap.PartsImported != 4 {
		t.Errorf("session metrics: %+v", snap)
	}
}

func TestArchive_DeduplicatesName(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)

	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.ArchiveDir, "a.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := drop(t, cfg, "a.csv")

	if err := svc.archive(path, cfg.ArchiveDir); err != nil {
		t.Fatalf("archive() error: %v", err)
	}
	entries, _ := os.ReadDir(cfg.ArchiveDir)
	if len(entries) != 2 {
		t.Errorf("archive has %d entries, want 2 distinct files", len(entries))
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	runner := &fakeRunner{}
	svc, _ := newTestService(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

// A failed enrichment task is not a run error, so its terminal status
// must flow into the recorder rather than being inferred as completed.
func TestRunCycle_RecordsFailedTaskStatus(t *testing.T) {
	runner := &fakeRunner{taskStatus: core.TaskFailed}
	svc, cfg := newTestService(t, runner)

	var recorded []core.TaskStatus
	svc.record = func(_ context.Context, _, _ string, _ core.OrderInfo, _ string, _ *core.ImportResult, taskStatus core.TaskStatus, _ time.Duration, runErr error) {
		if runErr != nil {
			t.Errorf("unexpected run error: %v", runErr)
		}
		recorded = append(recorded, taskStatus)
	}
	drop(t, cfg, "LCSC_failed_task.csv")

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 1 || recorded[0] != core.TaskFailed {
		t.Errorf("recorded statuses = %v, want [%q]", recorded, core.TaskFailed)
	}
}
