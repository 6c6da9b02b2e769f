// Package resedit provisions the resource editor and stamps metadata such as
// the icon and version strings onto the fused executable.
package resedit
