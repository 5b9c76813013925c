package core

import (
	"testing"
	"time"
)

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration syntax", "1500ms", 1500 * time.Millisecond},
		{"bare integer is seconds", "5", 5 * time.Second},
		{"unset uses default", "", 2 * time.Second},
		{"garbage uses default", "soon", 2 * time.Second},
		{"negative uses default", "-3s", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := ParseDurationEnv("TEST_DURATION", 2*time.Second); got != tt.want {
				t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseSizeEnvMB(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
	}{
		{"10 MB", "10", 10 * 1024 * 1024},
		{"unset uses default bytes", "", 1024},
		{"zero uses default", "0", 1024},
		{"garbage uses default", "big", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SIZE", tt.value)
			if got := ParseSizeEnvMB("TEST_SIZE", 1024); got != tt.want {
				t.Errorf("ParseSizeEnvMB(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseListEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"simple list", "lcsc,digikey", []string{"lcsc", "digikey"}},
		{"whitespace trimmed", " lcsc , digikey ", []string{"lcsc", "digikey"}},
		{"empty entries dropped", "lcsc,,digikey,", []string{"lcsc", "digikey"}},
		{"unset is nil", "", nil},
		{"only commas is nil", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_LIST", tt.value)
			got := ParseListEnv("TEST_LIST")
			if len(got) != len(tt.want) {
				t.Fatalf("ParseListEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseListEnv(%q)[%d] = %q, want %q", tt.value, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"YES", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"maybe", true}, // unparseable falls back to default (true here)
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := ParseBoolEnv("TEST_BOOL", true); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
