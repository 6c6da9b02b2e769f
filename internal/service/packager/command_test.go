package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lovepack/internal/config"
	"github.com/oshokin/lovepack/internal/domain/release"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// TestNewPackager_Precedence checks flag over env over file.
func TestNewPackager_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "arch: \"32\"\nlog_level: warn\n")

	pkg, err := newPackager(&Options{ProjectDir: dir})
	require.NoError(t, err)
	require.Equal(t, release.Arch32, pkg.layout.Arch)
	require.Equal(t, "warn", pkg.cfg.LogLevel)

	t.Setenv("LOVEPACK_ARCH", "win64")

	pkg, err = newPackager(&Options{ProjectDir: dir})
	require.NoError(t, err)
	require.Equal(t, release.Arch64, pkg.layout.Arch)

	pkg, err = newPackager(&Options{ProjectDir: dir, Arch: "x86", LogLevel: "debug"})
	require.NoError(t, err)
	require.Equal(t, release.Arch32, pkg.layout.Arch)
	require.Equal(t, "debug", pkg.cfg.LogLevel)
	require.Equal(t, filepath.Join(pkg.layout.ProjectRoot, "release", "windows32"), pkg.layout.ReleaseDir)
}

func TestNewPackager_RejectsBadArch(t *testing.T) {
	_, err := newPackager(&Options{ProjectDir: t.TempDir(), Arch: "arm64"})
	require.ErrorIs(t, err, release.ErrUnsupportedArch)
}

func TestNewPackager_MissingExplicitConfig(t *testing.T) {
	dir := t.TempDir()

	_, err := newPackager(&Options{ProjectDir: dir, ConfigPath: filepath.Join(dir, "custom.yaml"), Arch: "64"})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = newPackager(&Options{
		ProjectDir: dir,
		ConfigPath: filepath.Join(dir, "elsewhere", config.DefaultConfigFilename),
		Arch:       "64",
	})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = newPackager(&Options{ProjectDir: dir, Arch: "64"})
	require.NoError(t, err)
}

// TestOutputExclusions skips the build's own outputs even when the config forgets them.
func TestOutputExclusions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Arch = "64"
	cfg.ExcludeDirs = nil
	cfg.ExcludeFiles = nil
	cfg.CacheDir = "build/cache"
	cfg.PackageName = "mygame.love"
	cfg.Distributable = "mygame-{arch}.zip"
	require.NoError(t, config.Validate(cfg))

	layout, err := release.NewLayout(dir, release.Arch64, cfg.Names())
	require.NoError(t, err)

	exclusions := outputExclusions(cfg, layout, filepath.Join(dir, "settings.yaml"))

	require.True(t, exclusions.ExcludesDir("build/cache"))
	require.True(t, exclusions.ExcludesDir("build/cache/love64"))
	require.False(t, exclusions.ExcludesDir("build"))
	require.True(t, exclusions.ExcludesDir("release/windows64"))
	require.True(t, exclusions.ExcludesFile("mygame.love"))
	require.True(t, exclusions.ExcludesFile("mygame-64.zip"))
	require.True(t, exclusions.ExcludesFile("settings.yaml"))
	require.True(t, exclusions.ExcludesFile(release.TempPrefix+"123.love"))
	require.False(t, exclusions.ExcludesFile("main.lua"))
}

// TestOutputExclusions_CacheOutsideProject ignores directories that are not under the project root.
func TestOutputExclusions_CacheOutsideProject(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Arch = "32"
	cfg.ExcludeDirs = nil
	cfg.CacheDir = t.TempDir()
	require.NoError(t, config.Validate(cfg))

	layout, err := release.NewLayout(t.TempDir(), release.Arch32, cfg.Names())
	require.NoError(t, err)

	exclusions := outputExclusions(cfg, layout, config.DefaultConfigFilename)

	require.False(t, exclusions.ExcludesDir("cache"))
	require.True(t, exclusions.ExcludesDir("release"))
}
