// Package version carries build metadata injected through ldflags.
package version

var (
	// Version is the current application version.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders "v1.2.3 (abc1234, 2026-01-02)".
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
