// Package version provides build information for pixedit.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These are overridden at build time using ldflags.
var (
	Version   = "development"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the build information printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information. When ldflags did not set a commit, the
// VCS revision recorded by the Go toolchain is used if present.
func Get() Info {
	commit := Commit
	if commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			commit = rev
		}
	}
	return Info{
		Version:   Version,
		Commit:    commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return short(s.Value)
		}
	}
	return ""
}

func short(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String returns the version string including the commit hash if available.
func String() string {
	if Commit != "unknown" {
		return Version + "+" + short(Commit)
	}
	return Version
}
