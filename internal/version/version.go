// Package version holds build metadata.
package version

import "fmt"

// Set at build time, e.g.
// go build -ldflags "-X github.com/pysugar/fintrack/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("fintrack %s (commit %s, built %s)", Version, Commit, BuildTime)
}
