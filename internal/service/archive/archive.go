package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/common"
)

// archiveFileMode is used for both the game package and the distributable.
const archiveFileMode os.FileMode = 0o644

// Filter decides which parts of a tree are left out of an archive.
type Filter interface {
	// ExcludesDir receives a slash-separated path relative to the tree root.
	ExcludesDir(rel string) bool
	// ExcludesFile receives a bare file name.
	ExcludesFile(name string) bool
}

// Result describes a written archive.
type Result struct {
	// Path is the archive location.
	Path string
	// Entries are the slash-separated names written, in walk order.
	Entries []string
	// Size is the archive size in bytes.
	Size int64
}

// PackageAssets writes every file under root that filter keeps into a game package at out.
func PackageAssets(ctx context.Context, root, out string, filter Filter) (*Result, error) {
	ctx = logger.WithName(ctx, "package")

	logger.InfoKV(ctx, "Creating game package", "path", out)

	return writeTree(ctx, root, out, filter)
}

// CompressRelease writes every file under releaseDir into out, named relative to releaseDir.
func CompressRelease(ctx context.Context, releaseDir, out string) (*Result, error) {
	ctx = logger.WithName(ctx, "compress")

	logger.InfoKV(ctx, "Compressing release", "path", out)

	return writeTree(ctx, releaseDir, out, keepAll{})
}

// writeTree walks root in lexical order and zips the kept files through a temporary file.
func writeTree(ctx context.Context, root, out string, filter Filter) (*Result, error) {
	result := &Result{Path: out}

	err := common.WriteFileAtomic(out, archiveFileMode, func(w io.Writer) error {
		zipWriter := zip.NewWriter(w)

		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if err = ctx.Err(); err != nil {
				return err
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			rel = filepath.ToSlash(rel)

			if entry.IsDir() {
				if rel != "." && filter.ExcludesDir(rel) {
					logger.DebugKV(ctx, "Skipping directory", "path", rel)
					return filepath.SkipDir
				}

				return nil
			}

			if filter.ExcludesFile(entry.Name()) {
				logger.DebugKV(ctx, "Skipping file", "path", rel)
				return nil
			}

			written, err := addFile(zipWriter, path, rel)
			if err != nil {
				return fmt.Errorf("add %s: %w", rel, err)
			}

			if written {
				result.Entries = append(result.Entries, rel)
			}

			return nil
		})
		if walkErr != nil {
			_ = zipWriter.Close()
			return walkErr
		}

		return zipWriter.Close()
	})
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", out, err)
	}

	result.Size = info.Size()

	logger.InfoKV(ctx, "Archive written", "path", out, "files", len(result.Entries), "bytes", result.Size)

	return result, nil
}

// addFile writes one file into the archive. Symlinks are followed; anything
// that does not resolve to a regular file is skipped.
func addFile(zipWriter *zip.Writer, path, name string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if !info.Mode().IsRegular() {
		return false, nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, err
	}

	header.Name = name
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return false, err
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(writer, file); err != nil {
		return false, err
	}

	return true, nil
}

// keepAll is the Filter of the distributable: nothing in a release is optional.
type keepAll struct{}

func (keepAll) ExcludesDir(string) bool  { return false }
func (keepAll) ExcludesFile(string) bool { return false }
