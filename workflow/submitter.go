// Package workflow drives an import from submission through enrichment
// progress: the submitter posts the order file and the poller tracks the
// backend task it spawns.
package workflow

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/logging"
	"mm_importer/makermatrix"
)

// SubmitState is the submitter lifecycle state.
type SubmitState int32

const (
	StateIdle SubmitState = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s SubmitState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// importer is the slice of the MakerMatrix client the submitter needs.
type importer interface {
	ImportFile(ctx context.Context, req makermatrix.ImportRequest) (*core.ImportResult, error)
}

// Submitter posts one import at a time. A second Submit while one is in
// flight fails fast with ErrSubmitInProgress instead of double-posting
// the file.
type Submitter struct {
	client    importer
	serverURL string
	log       *logging.Logger

	mu    sync.Mutex
	state SubmitState
}

// NewSubmitter creates a Submitter in the idle state. serverURL is only
// used for error messages.
func NewSubmitter(client importer, serverURL string, log *logging.Logger) *Submitter {
	return &Submitter{client: client, serverURL: serverURL, log: log}
}

// State returns the current lifecycle state.
func (s *Submitter) State() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit posts the order file with its metadata and capability selection.
// The context should carry the configured submit timeout. On success the
// caller passes the result to ExtractTaskID to decide whether to poll.
func (s *Submitter) Submit(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities []string) (*core.ImportResult, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, core.ErrSubmitInProgress()
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	result, err := s.submit(ctx, path, supplierID, info, capabilities)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateSucceeded
	}
	s.mu.Unlock()

	return result, err
}

func (s *Submitter) submit(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities []string) (*core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.ErrFileUnreadable(path, err)
	}
	defer f.Close()

	s.log.Info("submitting import",
		zap.String("file", path),
		zap.String("supplier", supplierID),
		zap.Int("capabilities", len(capabilities)))

	result, err := s.client.ImportFile(ctx, makermatrix.ImportRequest{
		Filename:               path,
		File:                   f,
		SupplierName:           supplierID,
		OrderInfo:              info,
		EnableEnrichment:       len(capabilities) > 0,
		EnrichmentCapabilities: capabilities,
	})
	if err != nil {
		if core.IsConnectivityError(err) {
			return nil, core.ErrBackendUnreachable(s.serverURL, err)
		}
		return nil, err
	}

	s.log.Info("import accepted",
		zap.Int("imported", result.ImportedCount),
		zap.Int("failed", result.FailedCount),
		zap.String("task_id", ExtractTaskID(result)))
	return result, nil
}

// Reset returns a finished submitter to idle so the workflow can run
// another import in the same session. No-op while submitting.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		s.state = StateIdle
	}
}
