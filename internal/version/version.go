// Package version holds build metadata set through -ldflags, e.g.
// go build -ldflags "-X git.home.luguber.info/inful/pagebuilder/internal/version.Version=v0.3.0".
package version

import "fmt"

// Version is the release version.
var Version = "dev"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for --version output.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// Generator names the tool in generated artifacts.
func Generator() string {
	return "pagebuilder " + Version
}
