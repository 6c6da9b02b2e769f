package resedit

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lovepack/internal/service/common"
)

// fakeTool records its arguments one per line into the file named by its second argument plus ".args".
const fakeTool = "#!/bin/sh\nexe=\"$1\"\nshift\nprintf '%s\\n' \"$@\" > \"$exe.args\"\n"

func serveTool(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func checksumOf(body string) string {
	sum := sha512.Sum512([]byte(body))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func TestMetadata_Empty(t *testing.T) {
	t.Parallel()

	require.True(t, (&Metadata{}).Empty())
	require.True(t, (&Metadata{VersionStrings: map[string]string{}}).Empty())
	require.False(t, (&Metadata{FileVersion: "1.0.0"}).Empty())
	require.False(t, (&Metadata{VersionStrings: map[string]string{"ProductName": "Game"}}).Empty())
}

func TestMetadata_Args(t *testing.T) {
	t.Parallel()

	m := &Metadata{
		Icon:           "/p/icon.ico",
		FileVersion:    "1.2.3",
		ProductVersion: "1.2",
		VersionStrings: map[string]string{"ProductName": "Game", "CompanyName": "Studio"},
	}

	require.Equal(t, []string{
		"--set-icon", "/p/icon.ico",
		"--set-file-version", "1.2.3",
		"--set-product-version", "1.2",
		"--set-version-string", "CompanyName", "Studio",
		"--set-version-string", "ProductName", "Game",
	}, m.args())
}

func TestTool_EnsureDownloadsOnce(t *testing.T) {
	t.Parallel()

	server, requests := serveTool(t, "tool bytes")
	path := filepath.Join(t.TempDir(), "cache", "rcedit.exe")

	tool := NewTool(ToolOptions{
		Path:     path,
		URL:      server.URL + "/rcedit.exe",
		Checksum: checksumOf("tool bytes"),
	}, common.NewDownloader())

	downloaded, err := tool.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, downloaded)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "tool bytes", string(contents))

	downloaded, err = tool.Ensure(context.Background())
	require.NoError(t, err)
	require.False(t, downloaded)
	require.Equal(t, int32(1), requests.Load())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTool_EnsureChecksumMismatch(t *testing.T) {
	t.Parallel()

	server, _ := serveTool(t, "tampered")
	path := filepath.Join(t.TempDir(), "rcedit.exe")

	tool := NewTool(ToolOptions{
		Path:     path,
		URL:      server.URL,
		Checksum: checksumOf("original"),
	}, common.NewDownloader())

	_, err := tool.Ensure(context.Background())
	require.Error(t, err)
	require.NoFileExists(t, path)
}

func TestTool_ApplyMetadataWithoutMetadataIsNoop(t *testing.T) {
	t.Parallel()

	tool := NewTool(ToolOptions{
		Path:    filepath.Join(t.TempDir(), "missing.exe"),
		Wrapper: []string{"definitely-not-a-command"},
	}, common.NewDownloader())

	require.False(t, tool.Active())
	require.NoError(t, tool.ApplyMetadata(context.Background(), "game.exe"))
	require.False(t, Noop{}.Active())
	require.NoError(t, Noop{}.ApplyMetadata(context.Background(), "game.exe"))
}

// Not parallel: executing a file written moments ago can race with forks from other tests.
func TestTool_ApplyMetadataRunsTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool")
	}

	server, _ := serveTool(t, fakeTool)
	dir := t.TempDir()
	exe := filepath.Join(dir, "game.exe")
	require.NoError(t, os.WriteFile(exe, []byte("exe"), 0o600))

	tool := NewTool(ToolOptions{
		Path: filepath.Join(dir, "cache", "rcedit.exe"),
		URL:  server.URL,
		Metadata: Metadata{
			FileVersion:    "1.0.0",
			VersionStrings: map[string]string{"ProductName": "My Game"},
		},
	}, common.NewDownloader())

	_, err := tool.Ensure(context.Background())
	require.NoError(t, err)
	require.NoError(t, tool.ApplyMetadata(context.Background(), exe))

	args, err := os.ReadFile(exe + ".args")
	require.NoError(t, err)
	require.Equal(t, []string{
		"--set-file-version", "1.0.0",
		"--set-version-string", "ProductName", "My Game",
	}, strings.Split(strings.TrimSpace(string(args)), "\n"))
}

func TestTool_ApplyMetadataReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "rcedit.exe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho broken resource >&2\nexit 3\n"), 0o700))

	tool := NewTool(ToolOptions{
		Path:     path,
		Metadata: Metadata{ProductVersion: "2"},
	}, common.NewDownloader())

	err := tool.ApplyMetadata(context.Background(), filepath.Join(dir, "game.exe"))
	require.ErrorIs(t, err, ErrToolFailed)
	require.Contains(t, err.Error(), "broken resource")
}
