// Package common holds helpers shared by the pipeline stages.
//
// It provides a streaming HTTP downloader that hashes while it writes and
// helpers that build artifacts in temporary paths and rename them into place.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
