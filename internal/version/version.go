package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X .../internal/version.Version=1.2.3 ...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a formatted version string
func String() string {
	commit := Commit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	return fmt.Sprintf("v%s (commit: %s, built: %s)", Version, commit, BuildTime)
}

// vcsRevision falls back to the revision stamped by the go tool.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "unknown"
}
