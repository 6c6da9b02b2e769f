// Package stage prepares the release directory and fills it with runtime files.
//
// A release is assembled in a hidden staging directory next to the final one
// and swapped into place by Commit, so an interrupted build never leaves a
// half-populated release/windows<arch> behind.
package stage
