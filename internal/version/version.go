package version

import "fmt"

// Version is the release version, set via ldflags:
// go build -ldflags "-X github.com/blackmann/home-archive-2022-01/internal/version.Version=v1.0.0".
var Version = "unknown"

// Build metadata, set via ldflags alongside Version.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("sitebuilder %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
