package release

import (
	"path"
	"path/filepath"
	"strings"
)

// Exclusions filters the project tree while packaging the game.
//
// Directory rules match whole leading path segments relative to the project
// root: "cache" excludes "cache" and "cache/x" but not "cached_data".
// File rules match bare file names anywhere in the tree.
type Exclusions struct {
	dirs  [][]string
	files map[string]struct{}
}

// NewExclusions builds an immutable filter. Empty and "." directory rules are ignored.
func NewExclusions(dirs, files []string) *Exclusions {
	e := &Exclusions{
		dirs:  make([][]string, 0, len(dirs)),
		files: make(map[string]struct{}, len(files)),
	}

	for _, dir := range dirs {
		if segments := splitSegments(dir); len(segments) > 0 {
			e.dirs = append(e.dirs, segments)
		}
	}

	for _, name := range files {
		if name = strings.TrimSpace(name); name != "" {
			e.files[name] = struct{}{}
		}
	}

	return e
}

// With returns a new filter holding the receiver's rules plus the given ones.
func (e *Exclusions) With(dirs, files []string) *Exclusions {
	allDirs := make([]string, 0, len(e.dirs)+len(dirs))
	for _, segments := range e.dirs {
		allDirs = append(allDirs, strings.Join(segments, "/"))
	}

	allFiles := make([]string, 0, len(e.files)+len(files))
	for name := range e.files {
		allFiles = append(allFiles, name)
	}

	return NewExclusions(append(allDirs, dirs...), append(allFiles, files...))
}

// ExcludesDir reports whether a directory, given relative to the project root, is skipped.
func (e *Exclusions) ExcludesDir(rel string) bool {
	segments := splitSegments(rel)
	if len(segments) == 0 {
		return false
	}

	for _, rule := range e.dirs {
		if hasSegmentPrefix(segments, rule) {
			return true
		}
	}

	return false
}

// ExcludesFile reports whether a file with the given bare name is skipped.
// lovepack's own temporary files are always skipped.
func (e *Exclusions) ExcludesFile(name string) bool {
	if strings.HasPrefix(name, TempPrefix) {
		return true
	}

	_, found := e.files[name]

	return found
}

func splitSegments(p string) []string {
	p = path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	p = strings.Trim(p, "/")

	if p == "" || p == "." {
		return nil
	}

	return strings.Split(p, "/")
}

func hasSegmentPrefix(segments, prefix []string) bool {
	if len(segments) < len(prefix) {
		return false
	}

	for i, segment := range prefix {
		if segments[i] != segment {
			return false
		}
	}

	return true
}
