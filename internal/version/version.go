// Package version exposes build metadata injected at link time:
//
//	go build -ldflags "-X github.com/HerbHall/airwatch/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string without build metadata.
func Short() string {
	return Version
}

// IsRelease reports whether Version is a valid semantic version rather than
// a development build.
func IsRelease() bool {
	return semver.IsValid(canonical(Version))
}

// Info returns build metadata as a map, suitable for JSON responses.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description for the version subcommand.
func String() string {
	return fmt.Sprintf("airwatch %s (commit %s, built %s, %s %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
