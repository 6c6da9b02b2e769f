package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/lovepack/internal/config"
)

// Extractor unpacks every entry of an archive into destDir, flattening paths.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

var (
	// ErrExtractionFailed is returned when an archive could not be unpacked.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrExtractorNotFound is returned when the external extractor binary is missing.
	ErrExtractorNotFound = errors.New("extractor binary not found")
	// ErrUnknownExtractor is returned for an unsupported extractor kind.
	ErrUnknownExtractor = errors.New("unknown extractor")
)

// New returns the extractor configured by kind ("7z" or "zip").
//
//nolint:ireturn // Callers only need the capability.
func New(kind, sevenZipPath string) (Extractor, error) {
	switch kind {
	case config.ExtractorSevenZip, "":
		return NewSevenZip(sevenZipPath), nil
	case config.ExtractorZip:
		return Zip{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownExtractor)
	}
}
