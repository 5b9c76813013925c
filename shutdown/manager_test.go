package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"mm_importer/core"
)

func TestManager_ShutdownRunsCleanup(t *testing.T) {
	m := NewManager(zap.NewNop(), WithTimeout(time.Second))
	ran := false
	m.Register("store", 20, func(context.Context) error { ran = true; return nil })

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if !ran {
		t.Error("cleanup did not run")
	}
	if !m.IsShuttingDown() {
		t.Error("IsShuttingDown = false after Shutdown")
	}
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	m := NewManager(zap.NewNop(), WithTimeout(time.Second))
	runs := 0
	m.Register("x", 0, func(context.Context) error { runs++; return nil })

	m.Shutdown()
	if err := m.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
	if runs != 1 {
		t.Errorf("cleanup ran %d times, want 1", runs)
	}
}

func TestManager_ShutdownReportsErrors(t *testing.T) {
	m := NewManager(zap.NewNop(), WithTimeout(time.Second))
	m.Register("bad", 0, func(context.Context) error { return errors.New("boom") })

	if err := m.Shutdown(); err == nil {
		t.Error("expected error from failing cleanup")
	}
}

func TestManager_WrapOperation(t *testing.T) {
	m := NewManager(zap.NewNop())

	ran := false
	err := m.WrapOperation(context.Background(), "import", func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("WrapOperation: err=%v ran=%v", err, ran)
	}
}

func TestManager_WrapOperationRejectedDuringShutdown(t *testing.T) {
	m := NewManager(zap.NewNop(), WithTimeout(100*time.Millisecond))
	m.Shutdown()

	err := m.WrapOperation(context.Background(), "import", func(context.Context) error {
		t.Error("operation must not run during shutdown")
		return nil
	})
	if !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("want ErrTrackerClosed, got %v", err)
	}
}

func TestManager_ShutdownWaitsForInflight(t *testing.T) {
	m := NewManager(zap.NewNop(), WithTimeout(2*time.Second))

	opDone := make(chan struct{})
	started := make(chan struct{})
	go func() {
		m.WrapOperation(context.Background(), "slow", func(context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			close(opDone)
			return nil
		})
	}()
	<-started

	m.Shutdown()
	select {
	case <-opDone:
	default:
		t.Error("Shutdown returned before the in-flight operation finished")
	}
}

func TestManager_SignalExitCodes(t *testing.T) {
	m := NewManager(zap.NewNop())
	if m.ExitCode() != core.ExitCodeSuccess {
		t.Errorf("ExitCode with no signal = %d, want success", m.ExitCode())
	}

	m.mu.Lock()
	m.lastSig = syscall.SIGTERM
	m.mu.Unlock()
	if m.ExitCode() != core.ExitCodeSIGTERM {
		t.Errorf("ExitCode = %d, want %d", m.ExitCode(), core.ExitCodeSIGTERM)
	}

	m.mu.Lock()
	m.lastSig = syscall.SIGINT
	m.mu.Unlock()
	if m.ExitCode() != core.ExitCodeSIGINT {
		t.Errorf("ExitCode = %d, want %d", m.ExitCode(), core.ExitCodeSIGINT)
	}
}

func TestManager_ContextCancelledOnShutdownSignal(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Start()

	// Deliver a signal directly to the handler channel
	m.sigChan <- syscall.SIGTERM

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after signal")
	}
}

func TestManager_SecondSignalForcesExit(t *testing.T) {
	m := NewManager(zap.NewNop())
	exited := make(chan int, 1)
	m.forceExit = func(code int) { exited <- code }
	m.Start()

	m.sigChan <- syscall.SIGINT
	<-m.Context().Done()
	m.sigChan <- syscall.SIGINT

	select {
	case code := <-exited:
		if code != core.ExitCodeSIGINT {
			t.Errorf("forced exit code = %d, want %d", code, core.ExitCodeSIGINT)
		}
	case <-time.After(time.Second):
		t.Fatal("second signal did not force exit")
	}
}
