// Package version carries build metadata injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X videobridge/internal/version.Version=v1.0.0 \
//	  -X videobridge/internal/version.GitCommit=$(git rev-parse HEAD) \
//	  -X videobridge/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// Info is the payload served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata plus the runtime toolchain and platform.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the display version. Dev builds carry the short commit so
// two unreleased builds are distinguishable.
func String() string {
	if Version == "dev" && len(GitCommit) >= 7 {
		return fmt.Sprintf("dev+%s", GitCommit[:7])
	}
	return Version
}
