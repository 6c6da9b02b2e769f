// Package cache provisions the per-arch LÖVE runtime cache.
//
// A runtime directory is only ever created by renaming a fully extracted and
// verified staging directory, so an existing directory is trusted as is and
// reused without touching the network.
package cache
