package release

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// TempPrefix starts the name of every temporary file or directory lovepack creates.
const TempPrefix = ".lovepack-"

// Names carries the configurable file and directory names a Layout is built from.
type Names struct {
	// CacheDir holds downloaded third-party artifacts; relative to the project root unless absolute.
	CacheDir string
	// ReleaseDir holds per-arch release directories; relative to the project root unless absolute.
	ReleaseDir string
	// PackageName is the asset package file name, e.g. game.love.
	PackageName string
	// ExecutableName is the fused executable file name, e.g. game.exe.
	ExecutableName string
	// DistributableTemplate is the final zip name with an {arch} placeholder.
	DistributableTemplate string
	// ResourceToolName is the file name of the cached resource editor.
	ResourceToolName string
}

// Layout is the full set of paths used by one run. It is never mutated after NewLayout.
type Layout struct {
	Arch              Arch
	ProjectRoot       string
	CacheRoot         string
	RuntimeDir        string
	ReleaseRoot       string
	ReleaseDir        string
	PackagePath       string
	ExecutableName    string
	ExecutablePath    string
	DistributablePath string
	ResourceToolPath  string
}

var errEmptyName = errors.New("layout name must not be empty")

// NewLayout derives every path of a run from the project root and the arch.
func NewLayout(projectRoot string, arch Arch, names Names) (*Layout, error) {
	if _, err := ParseArch(string(arch)); err != nil {
		return nil, err
	}

	required := map[string]string{
		"cache dir":       names.CacheDir,
		"release dir":     names.ReleaseDir,
		"package name":    names.PackageName,
		"executable name": names.ExecutableName,
		"distributable":   names.DistributableTemplate,
		"resource tool":   names.ResourceToolName,
	}
	for field, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%s: %w", field, errEmptyName)
		}
	}

	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cacheRoot := underRoot(root, names.CacheDir)
	releaseRoot := underRoot(root, names.ReleaseDir)
	releaseDir := filepath.Join(releaseRoot, "windows"+string(arch))

	return &Layout{
		Arch:              arch,
		ProjectRoot:       root,
		CacheRoot:         cacheRoot,
		RuntimeDir:        filepath.Join(cacheRoot, "love"+string(arch)),
		ReleaseRoot:       releaseRoot,
		ReleaseDir:        releaseDir,
		PackagePath:       filepath.Join(root, names.PackageName),
		ExecutableName:    names.ExecutableName,
		ExecutablePath:    filepath.Join(releaseDir, names.ExecutableName),
		DistributablePath: filepath.Join(root, ExpandTemplate(names.DistributableTemplate, arch, "")),
		ResourceToolPath:  filepath.Join(cacheRoot, names.ResourceToolName),
	}, nil
}

// RelativeToRoot returns path relative to the project root, and false when it lies outside.
func (l *Layout) RelativeToRoot(path string) (string, bool) {
	rel, err := filepath.Rel(l.ProjectRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

func underRoot(root, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Join(root, dir)
}
