package core

import "fmt"

// Version is the application version, set at build time via ldflags.
//
//	go build -ldflags "-X mm_importer/core.Version=$(git describe --tags --always)" .
//
// If not set at build time, defaults to "dev".
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags.
// Defaults to "unknown".
var BuildTime = "unknown"

// GitCommit is the git commit hash, set at build time via ldflags.
// Defaults to "unknown".
var GitCommit = "unknown"

// GetVersionInfo returns a formatted version information string.
func GetVersionInfo() string {
	return fmt.Sprintf("mm-importer %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
