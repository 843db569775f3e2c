package version

// Package version holds build-time metadata injected via -ldflags:
//
//	-X hostreport/internal/version.Version=v1.2.3 -X hostreport/internal/version.Commit=abc1234
//
// When not set, helpers provide development defaults.

import "runtime"

var (
	// Version is a SemVer tag like v1.2.3 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the working tree had uncommitted changes, otherwise "clean".
	Dirty = ""
)

// String returns a compact human-readable version for the page footer.
// Releases return Version; dev builds return "dev-<sha>" with a trailing "*"
// when dirty, or "dev" when no metadata is available.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}

// Info is the payload served on /version.
func Info() map[string]string {
	return map[string]string{
		"version": String(),
		"commit":  Commit,
		"date":    Date,
		"go":      runtime.Version(),
	}
}
