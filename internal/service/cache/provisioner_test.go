package cache

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/service/common"
)

var errTestExtract = errors.New("test extract error")

// fakeExtractor writes the configured files instead of unpacking anything.
type fakeExtractor struct {
	// files are created in the destination directory.
	files []string
	// err is returned after the files are written.
	err error
	// archives records the archive paths passed to Extract.
	archives []string
}

// Extract creates empty files named after f.files in destDir.
func (f *fakeExtractor) Extract(_ context.Context, archivePath, destDir string) error {
	f.archives = append(f.archives, archivePath)

	for _, name := range f.files {
		if err := os.WriteFile(filepath.Join(destDir, name), []byte(name), 0o600); err != nil {
			return err
		}
	}

	return f.err
}

func newLayout(t *testing.T) *release.Layout {
	t.Helper()

	layout, err := release.NewLayout(t.TempDir(), release.Arch32, release.Names{
		CacheDir:              "cache",
		ReleaseDir:            "release",
		PackageName:           "game.love",
		ExecutableName:        "game.exe",
		DistributableTemplate: "game-win{arch}.zip",
		ResourceToolName:      "rcedit.exe",
	})
	require.NoError(t, err)

	return layout
}

func countingServer(t *testing.T, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)

		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)

	return ts, &requests
}

// cacheEntries lists the cache root, so tests can assert no temp files remain.
func cacheEntries(t *testing.T, layout *release.Layout) []string {
	t.Helper()

	entries, err := os.ReadDir(layout.CacheRoot)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

// TestEnsure_DownloadsOnceThenReuses checks the first run downloads and the second stays offline.
func TestEnsure_DownloadsOnceThenReuses(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	ts, requests := countingServer(t, []byte("installer"))
	extractor := &fakeExtractor{files: release.RuntimeFiles(release.Arch32)}

	p := NewProvisioner(layout, common.NewDownloader(), extractor, Source{URL: ts.URL + "/love-win32.exe"})

	downloaded, err := p.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, downloaded)
	require.EqualValues(t, 1, requests.Load())

	for _, name := range release.RuntimeFiles(release.Arch32) {
		_, err = os.Stat(filepath.Join(layout.RuntimeDir, name))
		require.NoError(t, err, name)
	}

	require.Equal(t, []string{"love32"}, cacheEntries(t, layout))

	downloaded, err = p.Ensure(context.Background())
	require.NoError(t, err)
	require.False(t, downloaded)
	require.EqualValues(t, 1, requests.Load())
	require.Len(t, extractor.archives, 1)
}

// TestEnsure_IncompleteRuntimeIsNotCommitted ensures a partial extraction never becomes the cache.
func TestEnsure_IncompleteRuntimeIsNotCommitted(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	ts, _ := countingServer(t, []byte("installer"))
	extractor := &fakeExtractor{files: []string{"love.exe", "love.dll"}}

	_, err := NewProvisioner(layout, common.NewDownloader(), extractor, Source{URL: ts.URL}).
		Ensure(context.Background())
	require.ErrorIs(t, err, ErrIncompleteRuntime)
	require.Contains(t, err.Error(), "OpenAL32.dll")

	require.Empty(t, cacheEntries(t, layout))
}

// TestEnsure_ExtractionFailure surfaces the extractor error and cleans up.
func TestEnsure_ExtractionFailure(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	ts, _ := countingServer(t, []byte("installer"))
	extractor := &fakeExtractor{files: release.RuntimeFiles(release.Arch32), err: errTestExtract}

	_, err := NewProvisioner(layout, common.NewDownloader(), extractor, Source{URL: ts.URL}).
		Ensure(context.Background())
	require.ErrorIs(t, err, errTestExtract)
	require.Empty(t, cacheEntries(t, layout))
}

// TestEnsure_BadStatusMutatesNothing fails on 404 before creating anything but the cache root.
func TestEnsure_BadStatusMutatesNothing(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	extractor := &fakeExtractor{}

	_, err := NewProvisioner(layout, common.NewDownloader(), extractor, Source{URL: ts.URL}).
		Ensure(context.Background())
	require.ErrorIs(t, err, common.ErrBadHTTPStatus)
	require.Empty(t, extractor.archives)
	require.Empty(t, cacheEntries(t, layout))
}

// TestEnsure_ChecksumMismatch rejects a tampered archive before extraction.
func TestEnsure_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	ts, _ := countingServer(t, []byte("tampered"))
	sum := sha512.Sum512([]byte("original"))
	extractor := &fakeExtractor{files: release.RuntimeFiles(release.Arch32)}

	source := Source{URL: ts.URL, Checksum: base64.StdEncoding.EncodeToString(sum[:])}

	_, err := NewProvisioner(layout, common.NewDownloader(), extractor, source).Ensure(context.Background())
	require.ErrorIs(t, err, common.ErrChecksumMismatch)
	require.Empty(t, extractor.archives)
	require.Empty(t, cacheEntries(t, layout))
}

// TestEnsure_SweepsInterruptedDownloads removes partial files of killed runs, even with a warm cache.
func TestEnsure_SweepsInterruptedDownloads(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	require.NoError(t, os.MkdirAll(layout.RuntimeDir, 0o755))

	partial := filepath.Join(layout.CacheRoot, release.TempPrefix+"123.download")
	staging := filepath.Join(layout.CacheRoot, release.TempPrefix+"love32-456")
	require.NoError(t, os.WriteFile(partial, []byte("half"), 0o600))
	require.NoError(t, os.MkdirAll(staging, 0o755))

	past := time.Now().Add(-time.Hour)
	for _, path := range []string{partial, staging} {
		require.NoError(t, os.Chtimes(path, past, past))
	}

	ts, requests := countingServer(t, []byte("installer"))
	p := NewProvisioner(layout, common.NewDownloader(), &fakeExtractor{}, Source{URL: ts.URL})

	downloaded, err := p.Ensure(context.Background())
	require.NoError(t, err)
	require.False(t, downloaded)
	require.Zero(t, requests.Load())
	require.Equal(t, []string{"love32"}, cacheEntries(t, layout))
}
