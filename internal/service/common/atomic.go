//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/lovepack/internal/domain/release"
)

const (
	// DefaultDirMode is used for every directory lovepack creates.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFileMode is used for produced artifacts, the fused executable included.
	DefaultFileMode os.FileMode = 0o755
)

// runStarted marks the beginning of this process; temporary entries older
// than it belong to runs that were killed before they could clean up.
var runStarted = time.Now()

// WriteFileAtomic writes path through a temporary sibling file that is renamed
// into place only when write succeeds. A failed write leaves any previous file untouched.
func WriteFileAtomic(path string, mode os.FileMode, write func(w io.Writer) error) (err error) {
	temporary, err := os.CreateTemp(filepath.Dir(path), release.TempPrefix+"*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temporary file for %s: %w", path, err)
	}

	defer func() {
		if err != nil {
			_ = temporary.Close()
			_ = os.Remove(temporary.Name())
		}
	}()

	if err = write(temporary); err != nil {
		return err
	}

	if err = temporary.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", temporary.Name(), err)
	}

	if err = temporary.Close(); err != nil {
		return fmt.Errorf("close %s: %w", temporary.Name(), err)
	}

	if err = os.Chmod(temporary.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", temporary.Name(), err)
	}

	if err = os.Rename(temporary.Name(), path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", temporary.Name(), path, err)
	}

	return nil
}

// ReplaceDir moves a fully built staging directory to target, removing any
// previous target first.
func ReplaceDir(staging, target string) error {
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove %s: %w", target, err)
	}

	if err := os.Rename(staging, target); err != nil {
		return fmt.Errorf("rename %s to %s: %w", staging, target, err)
	}

	return nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		return info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

// SweepStale removes temporary entries left in dir by earlier runs and returns
// their names. Entries created by the current run are kept.
func SweepStale(dir string) ([]string, error) {
	return sweepTemporary(dir, runStarted)
}

func sweepTemporary(dir string, before time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var removed []string

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), release.TempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return removed, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		if !info.ModTime().Before(before) {
			continue
		}

		if err = os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}

		removed = append(removed, entry.Name())
	}

	return removed, nil
}
