// Package release contains the domain types of a Windows LÖVE build.
//
// Arch selects the runtime flavor, Layout derives every path of a run from
// the project root and the Arch, and Exclusions decides which project files
// end up in the game package.
package release
