package resedit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/common"
)

// ErrToolFailed is returned when the resource editor exits with an error.
var ErrToolFailed = errors.New("resource editor failed")

// maxOutputInError bounds how much tool output ends up in an error message.
const maxOutputInError = 2048

// Hook edits resources of the runtime executable before it is fused.
type Hook interface {
	// Active reports whether ApplyMetadata would change anything.
	Active() bool
	ApplyMetadata(ctx context.Context, executablePath string) error
}

// Noop is the Hook used when the resource editor is disabled.
type Noop struct{}

// Active is always false.
func (Noop) Active() bool {
	return false
}

// ApplyMetadata does nothing.
func (Noop) ApplyMetadata(context.Context, string) error {
	return nil
}

// Metadata is what gets written into the executable's resources.
type Metadata struct {
	// Icon is an absolute path to an .ico file.
	Icon string
	// FileVersion sets the FILEVERSION resource.
	FileVersion string
	// ProductVersion sets the PRODUCTVERSION resource.
	ProductVersion string
	// VersionStrings sets string table entries.
	VersionStrings map[string]string
}

// Empty reports whether nothing would be changed.
func (m *Metadata) Empty() bool {
	return m.Icon == "" && m.FileVersion == "" && m.ProductVersion == "" && len(m.VersionStrings) == 0
}

// args builds the tool arguments; version strings are sorted for a stable command line.
func (m *Metadata) args() []string {
	var args []string

	if m.Icon != "" {
		args = append(args, "--set-icon", m.Icon)
	}

	if m.FileVersion != "" {
		args = append(args, "--set-file-version", m.FileVersion)
	}

	if m.ProductVersion != "" {
		args = append(args, "--set-product-version", m.ProductVersion)
	}

	keys := make([]string, 0, len(m.VersionStrings))
	for key := range m.VersionStrings {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		args = append(args, "--set-version-string", key, m.VersionStrings[key])
	}

	return args
}

// ToolOptions configures a Tool.
type ToolOptions struct {
	// Path is where the tool lives in the cache.
	Path string
	// URL is where the tool is downloaded from when Path is missing.
	URL string
	// Checksum is the optional base64 SHA-512 of the tool.
	Checksum string
	// Wrapper prefixes the invocation, e.g. ["wine"].
	Wrapper []string
	// Metadata is applied by ApplyMetadata.
	Metadata Metadata
}

// Tool is the cached resource editor.
type Tool struct {
	opts       ToolOptions
	downloader *common.Downloader
}

// NewTool creates a Tool.
func NewTool(opts ToolOptions, downloader *common.Downloader) *Tool {
	return &Tool{
		opts:       opts,
		downloader: downloader,
	}
}

// Ensure downloads the tool into the cache unless it is already there.
// It reports whether a download happened.
func (t *Tool) Ensure(ctx context.Context) (bool, error) {
	ctx = logger.WithName(ctx, "resedit")

	cached, err := common.FileExists(t.opts.Path)
	if err != nil {
		return false, err
	}

	if cached {
		logger.DebugKV(ctx, "Using cached resource editor", "path", t.opts.Path)
		return false, nil
	}

	logger.InfoKV(ctx, "Downloading resource editor", "url", t.opts.URL)

	dir := filepath.Dir(t.opts.Path)
	if err = os.MkdirAll(dir, common.DefaultDirMode); err != nil {
		return false, fmt.Errorf("create cache directory: %w", err)
	}

	download, err := t.downloader.Fetch(ctx, t.opts.URL, dir)
	if err != nil {
		return false, err
	}

	defer func() {
		_ = os.Remove(download.Path)
	}()

	if err = t.install(ctx, download.Path); err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "Resource editor cached", "path", t.opts.Path)

	return true, nil
}

// install moves a downloaded tool into place with go-update, which verifies
// the checksum before touching the target.
func (t *Tool) install(ctx context.Context, downloadPath string) (err error) {
	var checksum []byte

	if t.opts.Checksum != "" {
		checksum, err = base64.StdEncoding.DecodeString(t.opts.Checksum)
		if err != nil {
			return fmt.Errorf("decode resource editor checksum: %w", err)
		}
	}

	data, err := os.Open(filepath.Clean(downloadPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = data.Close()
	}()

	// go-update renames the current target aside first, so it has to exist.
	placeholder, err := os.Create(t.opts.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.opts.Path, err)
	}

	_ = placeholder.Close()

	defer func() {
		if err != nil {
			_ = os.Remove(t.opts.Path)
		}
	}()

	logger.Debug(ctx, "Applying resource editor download")

	options := goupdate.Options{
		TargetPath: t.opts.Path,
		TargetMode: common.DefaultFileMode,
		Checksum:   checksum,
		Hash:       common.DefaultChecksumFunction,
	}

	if err = goupdate.Apply(data, options); err != nil {
		return fmt.Errorf("install resource editor: %w", err)
	}

	removeLeftovers(t.opts.Path)

	return nil
}

// removeLeftovers deletes the previous target go-update may leave next to path.
func removeLeftovers(path string) {
	dir, name := filepath.Split(path)

	for _, old := range []string{path + ".old", filepath.Join(dir, "."+name+".old")} {
		if _, err := os.Stat(old); err == nil {
			_ = os.Remove(old)
		}
	}
}

// Active reports whether any metadata is configured.
func (t *Tool) Active() bool {
	return !t.opts.Metadata.Empty()
}

// ApplyMetadata runs the tool on executablePath. Without metadata it does nothing.
func (t *Tool) ApplyMetadata(ctx context.Context, executablePath string) error {
	ctx = logger.WithName(ctx, "resedit")

	if t.opts.Metadata.Empty() {
		logger.Debug(ctx, "No executable metadata configured, skipping resource editing")
		return nil
	}

	args := append([]string{}, t.opts.Wrapper...)
	args = append(args, t.opts.Path, executablePath)
	args = append(args, t.opts.Metadata.args()...)

	logger.InfoKV(ctx, "Editing executable resources", "path", executablePath)
	logger.DebugKV(ctx, "Running resource editor", "command", strings.Join(args, " "))

	//nolint:gosec // The command line comes from the project configuration.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		text := strings.TrimSpace(string(output))
		if len(text) > maxOutputInError {
			text = text[:maxOutputInError]
		}

		return fmt.Errorf("%w: %w: %s", ErrToolFailed, err, text)
	}

	return nil
}
