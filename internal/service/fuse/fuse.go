package fuse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/common"
)

// ErrMissingInput is returned when the runtime executable or the package is absent.
var ErrMissingInput = errors.New("fusion input is missing")

// Fuse writes runtimeExe followed by pkg into out and returns the number of bytes written.
// The output is replaced atomically and gets mode 0755.
func Fuse(ctx context.Context, runtimeExe, pkg, out string) (int64, error) {
	ctx = logger.WithName(ctx, "fuse")

	inputs := []string{runtimeExe, pkg}
	for _, input := range inputs {
		ok, err := common.FileExists(input)
		if err != nil {
			return 0, err
		}

		if !ok {
			return 0, fmt.Errorf("%s: %w", input, ErrMissingInput)
		}
	}

	logger.InfoKV(ctx, "Fusing executable", "runtime", runtimeExe, "package", pkg, "path", out)

	var written int64

	err := common.WriteFileAtomic(out, common.DefaultFileMode, func(w io.Writer) error {
		for _, input := range inputs {
			n, err := appendFile(w, input)
			written += n

			if err != nil {
				return fmt.Errorf("append %s: %w", input, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.DebugKV(ctx, "Executable fused", "path", out, "bytes", written)

	return written, nil
}

func appendFile(w io.Writer, path string) (int64, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = file.Close()
	}()

	return io.Copy(w, file)
}
