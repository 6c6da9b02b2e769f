// Package archive writes the zip archives of a build: the game package read by
// the LÖVE runtime and the final distributable of the release directory.
package archive
