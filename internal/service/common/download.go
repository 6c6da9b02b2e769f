//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/version"
)

// DefaultChecksumFunction is used to verify downloaded artifacts.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var (
	// ErrBadHTTPStatus is returned when the server answers with anything but 200 OK.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrChecksumMismatch is returned when a download does not match its expected checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Downloader streams HTTP resources to disk.
type Downloader struct {
	// client performs the requests; http.DefaultClient unless overridden.
	client *http.Client
	// timeout bounds one whole download, body included; zero means no limit.
	timeout time.Duration
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout bounds each download. Non-positive values disable the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download is a file fetched by Downloader.Fetch.
type Download struct {
	// Path is the temporary file holding the body; the caller removes it.
	Path string
	// Size is the number of bytes written.
	Size int64
	// Checksum is the SHA-512 of the body.
	Checksum []byte
}

// Fetch streams rawURL into a new temporary file inside dir.
// On any error nothing is left behind in dir.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dir string) (*Download, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	output, err := os.CreateTemp(dir, release.TempPrefix+"*.download")
	if err != nil {
		return nil, fmt.Errorf("create download file: %w", err)
	}

	hasher := DefaultChecksumFunction.New()

	size, err := io.Copy(io.MultiWriter(output, hasher), response.Body)
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(output.Name())

		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}

	logger.DebugKV(ctx, "Downloaded file", "url", rawURL, "path", output.Name(), "bytes", size)

	return &Download{
		Path:     output.Name(),
		Size:     size,
		Checksum: hasher.Sum(nil),
	}, nil
}

// Verify compares the download checksum against a base64 SHA-512.
// An empty expectation disables the check.
func (d *Download) Verify(expectedBase64 string) error {
	return VerifyChecksum(d.Checksum, expectedBase64)
}

// VerifyChecksum compares a raw checksum against a base64-encoded expectation.
// An empty expectation disables the check.
func VerifyChecksum(actual []byte, expectedBase64 string) error {
	if expectedBase64 == "" {
		return nil
	}

	expected, err := base64.StdEncoding.DecodeString(expectedBase64)
	if err != nil {
		return fmt.Errorf("decode expected checksum: %w", err)
	}

	if !bytes.Equal(actual, expected) {
		return fmt.Errorf("got %s, want %s: %w",
			base64.StdEncoding.EncodeToString(actual), expectedBase64, ErrChecksumMismatch)
	}

	return nil
}
