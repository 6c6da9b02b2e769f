package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/common"
	"github.com/oshokin/lovepack/internal/service/extract"
)

// ErrIncompleteRuntime is returned when an extracted runtime lacks required files.
var ErrIncompleteRuntime = errors.New("runtime archive is missing required files")

// Source describes where a runtime archive comes from.
type Source struct {
	// URL of the runtime archive.
	URL string
	// Checksum is the expected base64 SHA-512 of the archive; empty skips the check.
	Checksum string
}

// Provisioner makes sure the runtime for one arch is present in the cache.
type Provisioner struct {
	layout     *release.Layout
	downloader *common.Downloader
	extractor  extract.Extractor
	source     Source
}

// NewProvisioner creates a Provisioner for layout.RuntimeDir.
func NewProvisioner(
	layout *release.Layout,
	downloader *common.Downloader,
	extractor extract.Extractor,
	source Source,
) *Provisioner {
	return &Provisioner{
		layout:     layout,
		downloader: downloader,
		extractor:  extractor,
		source:     source,
	}
}

// Ensure returns once layout.RuntimeDir holds the runtime. It reports whether
// a download happened.
func (p *Provisioner) Ensure(ctx context.Context) (bool, error) {
	ctx = logger.WithName(ctx, "cache")

	if err := os.MkdirAll(p.layout.CacheRoot, common.DefaultDirMode); err != nil {
		return false, fmt.Errorf("create cache directory: %w", err)
	}

	removed, err := common.SweepStale(p.layout.CacheRoot)
	if err != nil {
		return false, fmt.Errorf("clean cache directory: %w", err)
	}

	if len(removed) > 0 {
		logger.InfoKV(ctx, "Removed leftovers of an interrupted run", "path", p.layout.CacheRoot, "entries", removed)
	}

	cached, err := common.DirExists(p.layout.RuntimeDir)
	if err != nil {
		return false, err
	}

	if cached {
		logger.InfoKV(ctx, "Using cached LÖVE runtime", "path", p.layout.RuntimeDir)
		return false, nil
	}

	logger.InfoKV(ctx, "LÖVE runtime not cached, downloading it",
		"arch", p.layout.Arch, "url", p.source.URL)

	if err = p.populate(ctx); err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "LÖVE runtime cached", "path", p.layout.RuntimeDir)

	return true, nil
}

// populate downloads, extracts, verifies and commits the runtime directory.
func (p *Provisioner) populate(ctx context.Context) error {
	download, err := p.downloader.Fetch(ctx, p.source.URL, p.layout.CacheRoot)
	if err != nil {
		return fmt.Errorf("download runtime: %w", err)
	}

	defer func() {
		_ = os.Remove(download.Path)
	}()

	if err = download.Verify(p.source.Checksum); err != nil {
		return fmt.Errorf("verify runtime archive: %w", err)
	}

	staging, err := os.MkdirTemp(p.layout.CacheRoot, release.TempPrefix+filepath.Base(p.layout.RuntimeDir)+"-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	logger.Info(ctx, "Extracting LÖVE runtime")

	if err = p.extractor.Extract(ctx, download.Path, staging); err != nil {
		return fmt.Errorf("extract runtime: %w", err)
	}

	if err = verifyRuntime(staging, p.layout.Arch); err != nil {
		return err
	}

	if err = os.Rename(staging, p.layout.RuntimeDir); err != nil {
		return fmt.Errorf("commit runtime cache: %w", err)
	}

	return nil
}

// verifyRuntime checks that dir holds every file the release needs.
func verifyRuntime(dir string, arch release.Arch) error {
	var missing []string

	for _, name := range release.RuntimeFiles(arch) {
		exists, err := common.FileExists(filepath.Join(dir, name))
		if err != nil {
			return err
		}

		if !exists {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrIncompleteRuntime)
	}

	return nil
}
