// Package version reports build metadata. Release builds inject it with
// -ldflags:
//
//	go build -ldflags "-X github.com/smazurov/palmcam/internal/version.Version=v0.3.0"
//
// Plain go builds fall back to the VCS stamp in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var vcsOnce = sync.OnceValue(readVCS)

// Get returns version and build information.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	vcs := vcsOnce()
	if info.GitCommit == "unknown" && vcs.GitCommit != "" {
		info.GitCommit = vcs.GitCommit
	}
	if info.BuildDate == "unknown" && vcs.BuildDate != "" {
		info.BuildDate = vcs.BuildDate
	}
	info.Modified = vcs.Modified
	return info
}

// String returns the application version string.
func String() string {
	return Version
}

// Long returns the version with commit and build date, for --version.
func (i Info) Long() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)", i.Version, commit, i.BuildDate, i.GoVersion, i.Platform)
}

func readVCS() Info {
	var out Info
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.GitCommit = s.Value
		case "vcs.time":
			out.BuildDate = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
}
