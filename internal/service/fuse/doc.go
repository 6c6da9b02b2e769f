// Package fuse glues the game package onto the LÖVE runtime executable.
//
// LÖVE looks for a zip archive appended to its own executable and runs it as
// the game, so the fused file is simply the runtime bytes followed by the
// package bytes.
package fuse
