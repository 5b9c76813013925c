package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Default file size ceilings for order files. Suppliers known to ship
// large exports (full reel histories, long BOMs) get the higher limit.
const (
	DefaultMaxFileSize = 10 * 1024 * 1024
	LargeMaxFileSize   = 15 * 1024 * 1024
)

// Config holds all configuration values for the import agent.
type Config struct {
	// Backend connection
	ServerURL            string
	APIKey               string
	AllowSelfSignedCerts bool

	// Request behavior
	RequestTimeout time.Duration // listing/status calls
	SubmitTimeout  time.Duration // import submission (multipart upload)
	MaxRetries     int
	RetryDelay     time.Duration

	// Polling
	PollInterval time.Duration

	// File intake
	MaxFileSize int64
	// LargeFileSuppliers get the LargeMaxFileSize ceiling instead
	LargeFileSuppliers []string

	// Local state
	HistoryDBPath  string
	MigrationsPath string

	// Optional YAML file overriding recommended enrichment capabilities
	CapabilitiesPath string

	// Watch mode
	WatchDir      string
	WatchInterval time.Duration
	ArchiveDir    string

	// Logging
	LogFilePath string
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. Only the backend URL and API key are required.
func LoadConfig() (*Config, error) {
	serverURL := os.Getenv("MAKERMATRIX_SERVER")
	apiKey := os.Getenv("MAKERMATRIX_API_KEY")

	var missingVars []string
	if serverURL == "" {
		missingVars = append(missingVars, "MAKERMATRIX_SERVER")
	}
	if apiKey == "" {
		missingVars = append(missingVars, "MAKERMATRIX_API_KEY")
	}
	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v. See example.env for a configuration template", missingVars)
	}

	if u, err := url.Parse(serverURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidServerURL(serverURL, "must include scheme and host")
	}

	cfg := &Config{
		ServerURL:            strings.TrimRight(serverURL, "/"),
		APIKey:               apiKey,
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),

		// 30s covers listing and status calls; uploads get their own,
		// longer ceiling so a slow backend cannot hang a submit forever
		RequestTimeout: ParseDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		SubmitTimeout:  ParseDurationEnv("SUBMIT_TIMEOUT", 120*time.Second),
		MaxRetries:     ParseIntEnv("MAX_RETRIES", 3),
		RetryDelay:     ParseDurationEnv("RETRY_DELAY", 1*time.Second),

		PollInterval: ParseDurationEnv("POLL_INTERVAL", 1500*time.Millisecond),

		MaxFileSize:        ParseSizeEnvMB("MAX_FILE_SIZE_MB", DefaultMaxFileSize),
		LargeFileSuppliers: ParseListEnv("LARGE_FILE_SUPPLIERS"),

		HistoryDBPath:  GetEnvOrDefault("HISTORY_DB_PATH", "./data/imports.db"),
		MigrationsPath: GetEnvOrDefault("MIGRATIONS_PATH", "file://db/migrations"),

		CapabilitiesPath: os.Getenv("CAPABILITIES_FILE"),

		WatchDir:      GetEnvOrDefault("WATCH_DIR", "./inbox"),
		WatchInterval: ParseDurationEnv("WATCH_INTERVAL", 30*time.Second),
		ArchiveDir:    GetEnvOrDefault("ARCHIVE_DIR", "./inbox/processed"),

		LogFilePath: GetEnvOrDefault("LOG_FILE", "importer.log"),
	}

	if cfg.LargeFileSuppliers == nil {
		cfg.LargeFileSuppliers = []string{"digikey"}
	}

	return cfg, nil
}

// MaxFileSizeFor returns the size ceiling for the given supplier id.
// An empty supplier id gets the default ceiling.
func (c *Config) MaxFileSizeFor(supplierID string) int64 {
	for _, s := range c.LargeFileSuppliers {
		if strings.EqualFold(s, supplierID) {
			if c.MaxFileSize < LargeMaxFileSize {
				return LargeMaxFileSize
			}
			return c.MaxFileSize
		}
	}
	return c.MaxFileSize
}

// GetHTTPClient returns an HTTP client configured with TLS settings based
// on AllowSelfSignedCerts. All backend requests should go through clients
// created here so the TLS configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
