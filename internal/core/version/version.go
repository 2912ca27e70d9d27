// Package version provides information about the build version of the tool
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'docmend/internal/core/version.version=v0.0.1'
	// -X 'docmend/internal/core/version.commit=abcd' -X 'docmend/internal/core/version.date=2026-10-01'"
	return BuildInfo{
		Service: "docmend-normalize",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders the build info on one line for --version
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Service, b.Version, b.Commit, b.Date)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
