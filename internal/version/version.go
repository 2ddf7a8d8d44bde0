// Package version exposes build metadata stamped in at link time.
package version

import "fmt"

// Set via -ldflags at build time. Defaults cover `go run` and tests.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string, e.g. "1.4.0" or "dev".
func Short() string {
	return Version
}

// Info returns a single human-readable version line.
func Info() string {
	return fmt.Sprintf("kaliguru %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns build metadata for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
