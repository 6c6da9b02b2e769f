package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oshokin/lovepack/internal/logger"
)

// Zip extracts .zip runtimes with archive/zip, flattening entries like `7z e`.
type Zip struct{}

// Extract implements Extractor.
func (Zip) Extract(ctx context.Context, archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", archivePath, err, ErrExtractionFailed)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			continue
		}

		name := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
		if name == "." || name == "/" || name == ".." {
			continue
		}

		if err = extractFile(file, filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("extract %s: %v: %w", file.Name, err, ErrExtractionFailed)
		}

		logger.DebugKV(ctx, "Extracted entry", "entry", file.Name, "bytes", file.UncompressedSize64)
	}

	return nil
}

func extractFile(file *zip.File, target string) error {
	source, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	output, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err = io.Copy(output, source); err != nil {
		_ = output.Close()

		return err
	}

	return output.Close()
}
