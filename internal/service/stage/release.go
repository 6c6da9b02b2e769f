package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/common"
)

// ErrReleaseInUse is returned when the previous build's executable is still running.
var ErrReleaseInUse = errors.New("release executable is running")

// Preparer creates clean release directories.
type Preparer struct {
	layout *release.Layout
	// processes lists running processes; replaced in tests.
	processes func() ([]ps.Process, error)
	// guardRunning enables the running-executable check. Only Windows refuses
	// to delete a running executable.
	guardRunning bool
}

// NewPreparer creates a Preparer for layout.ReleaseDir.
func NewPreparer(layout *release.Layout) *Preparer {
	return &Preparer{
		layout:       layout,
		processes:    ps.Processes,
		guardRunning: runtime.GOOS == "windows",
	}
}

// Release is a release directory under construction.
type Release struct {
	layout  *release.Layout
	staging string
	done    bool
}

// Prepare creates the release root if needed and an empty staging directory.
// The existing release directory is left alone until Commit.
func (p *Preparer) Prepare(ctx context.Context) (*Release, error) {
	ctx = logger.WithName(ctx, "release")

	if err := os.MkdirAll(p.layout.ReleaseRoot, common.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create release root: %w", err)
	}

	removed, err := common.SweepStale(p.layout.ReleaseRoot)
	if err != nil {
		return nil, fmt.Errorf("clean release root: %w", err)
	}

	if len(removed) > 0 {
		logger.InfoKV(ctx, "Removed leftovers of an interrupted run", "path", p.layout.ReleaseRoot, "entries", removed)
	}

	if err = p.ensureNotRunning(); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(p.layout.ReleaseRoot, release.TempPrefix+filepath.Base(p.layout.ReleaseDir)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create release staging directory: %w", err)
	}

	if err = os.Chmod(staging, common.DefaultDirMode); err != nil {
		_ = os.RemoveAll(staging)

		return nil, fmt.Errorf("chmod release staging directory: %w", err)
	}

	logger.InfoKV(ctx, "Creating release directory", "path", p.layout.ReleaseDir)

	return &Release{
		layout:  p.layout,
		staging: staging,
	}, nil
}

// ensureNotRunning refuses to replace a release whose executable is running:
// Windows cannot delete it, which would leave the old release half removed.
// Without a previous release there is nothing to replace.
func (p *Preparer) ensureNotRunning() error {
	if !p.guardRunning {
		return nil
	}

	exists, err := common.DirExists(p.layout.ReleaseDir)
	if err != nil {
		return err
	}

	if !exists {
		return nil
	}

	processList, err := p.processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if strings.EqualFold(process.Executable(), p.layout.ExecutableName) {
			return fmt.Errorf("%s (pid %d): %w", process.Executable(), process.Pid(), ErrReleaseInUse)
		}
	}

	return nil
}

// Dir is the staging directory stages write into.
func (r *Release) Dir() string {
	return r.staging
}

// ExecutablePath is where the fused executable goes inside the staging directory.
func (r *Release) ExecutablePath() string {
	return filepath.Join(r.staging, r.layout.ExecutableName)
}

// Commit replaces the release directory with the staging directory.
func (r *Release) Commit(ctx context.Context) error {
	if r.done {
		return nil
	}

	if err := common.ReplaceDir(r.staging, r.layout.ReleaseDir); err != nil {
		return fmt.Errorf("commit release directory: %w", err)
	}

	r.done = true

	logger.DebugKV(ctx, "Release directory committed", "path", r.layout.ReleaseDir)

	return nil
}

// Discard removes the staging directory unless the release was committed.
func (r *Release) Discard() {
	if r.done {
		return
	}

	_ = os.RemoveAll(r.staging)
	r.done = true
}
