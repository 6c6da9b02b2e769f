// Package version exposes lovepack build metadata.
//
// Version, Commit and BuildTime are injected with -ldflags "-X" at release
// time; local builds keep the defaults below.
package version
