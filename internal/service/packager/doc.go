// Package packager runs the whole Windows build of a LÖVE game.
//
// It resolves settings, makes sure the runtime is cached, assembles a fresh
// release directory holding the fused executable and the runtime libraries,
// and compresses it into the distributable zip. Every stage commits its
// output only when it succeeds, so a failed or interrupted run never leaves
// a half-built artifact behind.
package packager
