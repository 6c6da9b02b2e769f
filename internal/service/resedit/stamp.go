package resedit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
)

// StampRuntime returns the executable to fuse. With an inactive hook that is
// runtimeExe itself; otherwise it is an edited copy inside workDir, removed by
// the returned cleanup. The cached runtime is never modified.
//
// Editing resources rewrites the PE image and drops anything appended after
// it, so metadata has to be applied before the game package is fused.
func StampRuntime(ctx context.Context, hook Hook, runtimeExe, workDir string) (string, func(), error) {
	if !hook.Active() {
		return runtimeExe, func() {}, nil
	}

	ctx = logger.WithName(ctx, "resedit")

	stamped := filepath.Join(workDir, release.TempPrefix+filepath.Base(runtimeExe))
	cleanup := func() {
		_ = os.Remove(stamped)
	}

	logger.DebugKV(ctx, "Copying runtime executable for resource editing", "path", stamped)

	if err := copy.Copy(runtimeExe, stamped, copy.Options{Sync: true}); err != nil {
		return "", cleanup, fmt.Errorf("copy %s: %w", runtimeExe, err)
	}

	if err := hook.ApplyMetadata(ctx, stamped); err != nil {
		cleanup()

		return "", func() {}, err
	}

	return stamped, cleanup, nil
}
