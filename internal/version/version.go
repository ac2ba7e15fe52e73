// Package version exposes build information for healthz and the startup log.
package version

import "fmt"

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Injected at build time via -ldflags "-X hallynk/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func Info() BuildInfo {
	return BuildInfo{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", b.Version, b.Commit, b.Date)
}
