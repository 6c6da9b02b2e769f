package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/oshokin/lovepack/internal/logger"
)

// ErrMissingSource is returned when a file to stage does not exist.
// For runtime files it means the cache is broken.
var ErrMissingSource = errors.New("source file not found")

// ErrNonLocalExtra is returned for an extra file that is absolute or climbs out of the project.
var ErrNonLocalExtra = errors.New("extra file must be a path inside the project")

// StageRuntime copies the runtime libraries from runtimeDir into destDir.
func StageRuntime(ctx context.Context, runtimeDir, destDir string, libraries []string) error {
	logger.Info(logger.WithName(ctx, "stage"), "Copying necessary DLLs")

	for _, name := range libraries {
		if err := stageOne(filepath.Join(runtimeDir, name), filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("stage runtime file: %w", err)
		}
	}

	return nil
}

// StageExtras copies project files such as LICENSE.md into destDir, keeping
// their project-relative paths. Directories are copied recursively.
func StageExtras(ctx context.Context, projectRoot, destDir string, extras []string) error {
	logger.Info(logger.WithName(ctx, "stage"), "Copying other necessary files")

	for _, name := range extras {
		rel := filepath.FromSlash(name)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("stage extra file %q: %w", name, ErrNonLocalExtra)
		}

		rel = filepath.Clean(rel)

		if err := stageOne(filepath.Join(projectRoot, rel), filepath.Join(destDir, rel)); err != nil {
			return fmt.Errorf("stage extra file: %w", err)
		}
	}

	return nil
}

// stageOne copies src to dst byte for byte, failing loudly when src is missing.
func stageOne(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", src, ErrMissingSource)
		}

		return fmt.Errorf("stat %s: %w", src, err)
	}

	if err := copy.Copy(src, dst, copy.Options{Sync: true}); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	return nil
}
