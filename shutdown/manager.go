package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mm_importer/core"
)

// Manager coordinates graceful shutdown: it cancels its context on the
// first SIGINT/SIGTERM, forces an exit on the second, waits for
// in-flight imports, and runs registered cleanup in priority order.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool
	lastSig  os.Signal
	sigCount int

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	sigChan  chan os.Signal

	// forceExit is swappable for tests
	forceExit func(code int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the shutdown timeout. Default 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) { m.timeout = timeout }
}

// NewManager creates a Manager. The logger is required.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:    logger,
		timeout:   30 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewOperationTracker(),
		registry:  NewRegistry(),
		sigChan:   make(chan os.Signal, 1),
		forceExit: os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the context cancelled on the first shutdown signal.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function; lower priority runs first.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name), zap.Int("priority", priority))
}

// Start begins listening for SIGINT and SIGTERM. The first signal
// cancels the context; the second forces an immediate exit. Safe to
// call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.mu.Lock()
			m.sigCount++
			m.lastSig = sig
			count := m.sigCount
			m.mu.Unlock()

			if count == 1 {
				m.logger.Info("Received shutdown signal",
					zap.String("signal", sig.String()))
				m.cancel()
				continue
			}
			m.logger.Warn("Received second signal, forcing exit")
			m.forceExit(m.ExitCode())
		}
	}()
}

// ExitCode returns the process exit code matching the received signal,
// or success when shutdown was not signal-driven.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.lastSig {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeSuccess
	}
}

// Wait blocks until the first shutdown signal.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation runs fn as a tracked in-flight operation. Returns
// ErrTrackerClosed without running fn when shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("Operation rejected, shutting down", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// IsShuttingDown reports whether shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// Shutdown runs the teardown sequence: stop accepting operations, wait
// for in-flight ones (bounded by the timeout), then run cleanup in
// priority order. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	start := time.Now()
	m.logger.Info("Shutting down",
		zap.Duration("timeout", m.timeout),
		zap.Int("handlers", m.registry.Count()))

	m.tracker.Close()
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("Timed out waiting for in-flight operations",
			zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)

	m.logger.Info("Shutdown complete", zap.Duration("duration", time.Since(start)))
	if len(errs) > 0 {
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}
	return nil
}
