package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lovepack/internal/config"
	"github.com/oshokin/lovepack/internal/domain/release"
)

// runCLI executes the root command with args, resetting flag variables left by earlier runs.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, arch, projectDir, logLevel, force = "", "", ".", "", false

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func loadArch(t *testing.T, path string) string {
	t.Helper()

	cfg, err := config.Load(path)
	require.NoError(t, err)

	return cfg.Arch
}

// TestInit_WritesAndProtectsConfig covers the first write, the overwrite refusal and --force.
func TestInit_WritesAndProtectsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultConfigFilename)

	out, err := runCLI(t, "init", "-C", dir, "--arch", "x64")
	require.NoError(t, err)
	require.Contains(t, out, "Configuration written to "+path)
	require.Equal(t, "64", loadArch(t, path))

	_, err = runCLI(t, "init", "-C", dir, "--arch", "32")
	require.ErrorIs(t, err, errConfigExists)
	require.Equal(t, "64", loadArch(t, path))

	_, err = runCLI(t, "init", "-C", dir, "--arch", "32", "--force")
	require.NoError(t, err)
	require.Equal(t, "32", loadArch(t, path))
}

func TestInit_WithoutArchLeavesItUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")

	_, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)
	require.Empty(t, loadArch(t, path))
}

func TestInit_RejectsUnknownArch(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "init", "-C", dir, "--arch", "arm64")
	require.ErrorIs(t, err, release.ErrUnsupportedArch)
	require.NoFileExists(t, filepath.Join(dir, config.DefaultConfigFilename))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
