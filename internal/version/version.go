package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("lovepack %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// UserAgent is sent with every HTTP download so hosts can tell the tool apart.
func UserAgent() string {
	return "lovepack/" + Version
}
