package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/frostdev-ops/satwatch/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the build metadata reported by /health
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the release version, or dev-<short commit> for
// untagged builds.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit == "" {
		commit = "unknown"
	}
	return "dev-" + commit
}

// GetBuildInfo returns the build metadata
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Banner is the one-line --version output of a satwatch binary
func Banner(binary string) string {
	info := GetBuildInfo()
	return fmt.Sprintf("satwatch-%s %s (commit: %s, built: %s, %s)",
		binary, info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
}
