package extract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/lovepack/internal/logger"
)

// maxReportedOutput caps how much tool output ends up in an error message.
const maxReportedOutput = 2048

// SevenZip runs `7z e <archive> -o<dest> * -y`.
type SevenZip struct {
	// Binary is the 7-Zip executable name or path.
	Binary string
}

// NewSevenZip returns a SevenZip using binary, or "7z" when empty.
func NewSevenZip(binary string) *SevenZip {
	if binary == "" {
		binary = "7z"
	}

	return &SevenZip{Binary: binary}
}

// Extract implements Extractor.
func (s *SevenZip) Extract(ctx context.Context, archivePath, destDir string) error {
	binary, err := exec.LookPath(s.Binary)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Binary, ErrExtractorNotFound)
	}

	cmd := exec.CommandContext(ctx, binary, "e", archivePath, "-o"+destDir, "*", "-y")

	logger.DebugKV(ctx, "Running extractor", "command", strings.Join(cmd.Args, " "))

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s exited with code %d: %s: %w",
			s.Binary, exitErr.ExitCode(), truncate(output), ErrExtractionFailed)
	}

	return fmt.Errorf("run %s: %w", s.Binary, err)
}

func truncate(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) > maxReportedOutput {
		text = "..." + text[len(text)-maxReportedOutput:]
	}

	return text
}
