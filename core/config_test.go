package core

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAKERMATRIX_SERVER", "https://makermatrix.local")
	t.Setenv("MAKERMATRIX_API_KEY", "test-key")
}

func TestLoadConfig_RequiredVars(t *testing.T) {
	t.Setenv("MAKERMATRIX_SERVER", "")
	t.Setenv("MAKERMATRIX_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when required vars are missing")
	}
}

func TestLoadConfig_InvalidServerURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAKERMATRIX_SERVER", "not a url")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for invalid server URL")
	}
	if GetErrorCode(err) != ErrCodeInvalidServerURL {
		t.Errorf("error code = %q, want %q", GetErrorCode(err), ErrCodeInvalidServerURL)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 1.5s", cfg.PollInterval)
	}
	if cfg.SubmitTimeout != 120*time.Second {
		t.Errorf("SubmitTimeout = %v, want 120s", cfg.SubmitTimeout)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want %d", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
}

func TestLoadConfig_TrailingSlashTrimmed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAKERMATRIX_SERVER", "https://makermatrix.local/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.ServerURL != "https://makermatrix.local" {
		t.Errorf("ServerURL = %q, want trailing slash trimmed", cfg.ServerURL)
	}
}

func TestConfig_MaxFileSizeFor(t *testing.T) {
	cfg := &Config{
		MaxFileSize:        DefaultMaxFileSize,
		LargeFileSuppliers: []string{"digikey"},
	}

	tests := []struct {
		supplier string
		want     int64
	}{
		{"lcsc", DefaultMaxFileSize},
		{"digikey", LargeMaxFileSize},
		{"DigiKey", LargeMaxFileSize}, // case-insensitive
		{"", DefaultMaxFileSize},
	}

	for _, tt := range tests {
		t.Run(tt.supplier, func(t *testing.T) {
			if got := cfg.MaxFileSizeFor(tt.supplier); got != tt.want {
				t.Errorf("MaxFileSizeFor(%q) = %d, want %d", tt.supplier, got, tt.want)
			}
		})
	}
}

func TestGetHTTPClient_SelfSigned(t *testing.T) {
	cfg := &Config{AllowSelfSignedCerts: true}
	client := GetHTTPClient(cfg, 10*time.Second)

	if client.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", client.Timeout)
	}
	if client.Transport == nil {
		t.Fatal("expected Transport to be configured for self-signed certs")
	}
}
