package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
)

func TestWorkflowError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *WorkflowError
		contains []string
	}{
		{
			name:     "message with action",
			err:      ErrUnsupportedFormat(".pdf"),
			contains: []string{".pdf", ".csv"},
		},
		{
			name:     "message without action",
			err:      ErrImportRejected("no valid rows"),
			contains: []string{"no valid rows"},
		},
		{
			name:     "file too large includes both sizes",
			err:      ErrFileTooLarge(20971520, 10485760),
			contains: []string{"20971520", "10485760"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestIsWorkflowError(t *testing.T) {
	base := ErrSupplierNotFound("acme")

	if _, ok := IsWorkflowError(base); !ok {
		t.Error("expected direct WorkflowError to be detected")
	}

	wrapped := fmt.Errorf("resolving: %w", base)
	wfErr, ok := IsWorkflowError(wrapped)
	if !ok {
		t.Fatal("expected wrapped WorkflowError to be detected")
	}
	if wfErr.Code != ErrCodeSupplierNotFound {
		t.Errorf("Code = %q, want %q", wfErr.Code, ErrCodeSupplierNotFound)
	}

	if _, ok := IsWorkflowError(errors.New("plain")); ok {
		t.Error("plain error should not be a WorkflowError")
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unsupported format", ErrUnsupportedFormat(".txt"), true},
		{"file too large", ErrFileTooLarge(1, 0), true},
		{"unreadable", ErrFileUnreadable("x.csv", errors.New("denied")), true},
		{"domain error", ErrImportRejected("bad"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsConnectivityError(t *testing.T) {
	urlErr := &url.Error{Op: "Post", URL: "http://localhost:9/api", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"url error", urlErr, true},
		{"wrapped url error", fmt.Errorf("submit: %w", urlErr), true},
		{"backend unreachable code", ErrBackendUnreachable("http://x", errors.New("refused")), true},
		{"domain error", ErrImportRejected("bad"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectivityError(tt.err); got != tt.want {
				t.Errorf("IsConnectivityError() = %v, want %v", got, tt.want)
			}
		})
	}
}
