package workflow

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"

	"mm_importer/core"
	"mm_importer/logging"
	"mm_importer/makermatrix"
)

type fakeImporter struct {
	mu      sync.Mutex
	result  *core.ImportResult
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
	lastReq makermatrix.ImportRequest
}

func (f *fakeImporter) ImportFile(ctx context.Context, req makermatrix.ImportRequest) (*core.ImportResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func testLogger() *logging.Logger {
	return logging.NewLoggerWithCore(zapcore.NewNopCore())
}

func tempOrderFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.csv")
	if err := os.WriteFile(path, []byte("Part,Qty\nC1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmit_Success(t *testing.T) {
	imp := &fakeImporter{result: &core.ImportResult{ImportedCount: 2}}
	s := NewSubmitter(imp, "https://backend", testLogger())
	path := tempOrderFile(t)

	result, err := s.Submit(context.Background(), path, "lcsc",
		core.OrderInfo{OrderNumber: "ORD-1"}, []string{"get_part_details"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if result.ImportedCount != 2 {
		t.Errorf("ImportedCount = %d", result.ImportedCount)
	}
	if s.State() != StateSucceeded {
		t.Errorf("State = %v, want succeeded", s.State())
	}
	if !imp.lastReq.EnableEnrichment {
		t.Error("enrichment must be enabled when capabilities are selected")
	}
	if imp.lastReq.OrderInfo.OrderNumber != "ORD-1" {
		t.Errorf("order info not forwarded: %+v", imp.lastReq.OrderInfo)
	}
}

func TestSubmit_NoCapabilitiesDisablesEnrichment(t *testing.T) {
	imp := &fakeImporter{result: &core.ImportResult{ImportedCount: 1}}
	s := NewSubmitter(imp, "https://backend", testLogger())

	if _, err := s.Submit(context.Background(), tempOrderFile(t), "lcsc", core.OrderInfo{}, nil); err != nil {
		t.Fatal(err)
	}
	if imp.lastReq.EnableEnrichment {
		t.Error("enrichment must be off with an empty selection")
	}
}

func TestSubmit_DoubleSubmitGuard(t *testing.T) {
	imp := &fakeImporter{
		result:  &core.ImportResult{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewSubmitter(imp, "https://backend", testLogger())
	path := tempOrderFile(t)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), path, "lcsc", core.OrderInfo{}, nil)
		firstDone <- err
	}()
	<-imp.started

	_, err := s.Submit(context.Background(), path, "lcsc", core.OrderInfo{}, nil)
	if core.GetErrorCode(err) != core.ErrCodeSubmitInProgress {
		t.Errorf("want SUBMIT_IN_PROGRESS, got %v", err)
	}

	close(imp.release)
	if err := <-firstDone; err != nil {
		t.Errorf("first submit failed: %v", err)
	}
	if imp.calls != 1 {
		t.Errorf("ImportFile called %d times, want 1", imp.calls)
	}
}

func TestSubmit_UnreadableFile(t *testing.T) {
	imp := &fakeImporter{}
	s := NewSubmitter(imp, "https://backend", testLogger())

	_, err := s.Submit(context.Background(), "/nonexistent.csv", "lcsc", core.OrderInfo{}, nil)
	if core.GetErrorCode(err) != core.ErrCodeFileUnreadable {
		t.Errorf("want FILE_UNREADABLE, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State = %v, want failed", s.State())
	}
	if imp.calls != 0 {
		t.Error("no request must be made for an unreadable file")
	}
}

func TestSubmit_ConnectivityErrorMapped(t *testing.T) {
	imp := &fakeImporter{err: &url.Error{Op: "Post", URL: "https://backend", Err: errors.New("connection refused")}}
	s := NewSubmitter(imp, "https://backend", testLogger())

	_, err := s.Submit(context.Background(), tempOrderFile(t), "lcsc", core.OrderInfo{}, nil)
	if core.GetErrorCode(err) != core.ErrCodeBackendUnreachable {
		t.Errorf("want BACKEND_UNREACHABLE, got %v", err)
	}
}

func TestSubmit_DomainErrorPassedThrough(t *testing.T) {
	imp := &fakeImporter{err: core.ErrImportRejected("no valid rows")}
	s := NewSubmitter(imp, "https://backend", testLogger())

	_, err := s.Submit(context.Background(), tempOrderFile(t), "lcsc", core.OrderInfo{}, nil)
	if core.GetErrorCode(err) != core.ErrCodeImportRejected {
		t.Errorf("want IMPORT_REJECTED, got %v", err)
	}
}

func TestReset(t *testing.T) {
	imp := &fakeImporter{result: &core.ImportResult{}}
	s := NewSubmitter(imp, "https://backend", testLogger())

	if _, err := s.Submit(context.Background(), tempOrderFile(t), "lcsc", core.OrderInfo{}, nil); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if s.State() != StateIdle {
		t.Errorf("State after Reset = %v, want idle", s.State())
	}
}
