package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
)

// Config holds everything a Windows build needs.
type Config struct {
	// Arch is the target runtime architecture, "32" or "64".
	Arch string `yaml:"arch" env:"LOVEPACK_ARCH"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOVEPACK_LOG_LEVEL"`
	// CacheDir stores downloaded runtimes and tools across runs.
	CacheDir string `yaml:"cache_dir" env:"LOVEPACK_CACHE_DIR"`
	// ReleaseDir is the root of the per-arch release directories.
	ReleaseDir string `yaml:"release_dir" env:"LOVEPACK_RELEASE_DIR"`
	// PackageName is the intermediate asset package written to the project root.
	PackageName string `yaml:"package_name"`
	// ExecutableName is the name of the fused executable in the release directory.
	ExecutableName string `yaml:"executable_name"`
	// Distributable is the final zip name; {arch} is substituted.
	Distributable string `yaml:"distributable"`
	// DownloadTimeout bounds a single HTTP download; zero disables the limit.
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"LOVEPACK_DOWNLOAD_TIMEOUT"`
	// Runtime describes where the LÖVE runtime comes from.
	Runtime Runtime `yaml:"runtime"`
	// ResourceEditor configures the executable metadata step.
	ResourceEditor ResourceEditor `yaml:"resource_editor"`
	// Extras are project-root files copied into the release directory.
	Extras []string `yaml:"extras"`
	// ExcludeDirs are project directories left out of the asset package.
	ExcludeDirs []string `yaml:"exclude_dirs"`
	// ExcludeFiles are bare file names left out of the asset package.
	ExcludeFiles []string `yaml:"exclude_files"`
}

// Runtime describes the LÖVE runtime download.
type Runtime struct {
	// Version is substituted for {version} in URL.
	Version string `yaml:"version"`
	// URL is the runtime archive location with {version} and {arch} placeholders.
	URL string `yaml:"url" env:"LOVEPACK_RUNTIME_URL"`
	// Checksums maps an arch to the base64 SHA-512 of its archive. Missing entries skip verification.
	Checksums map[string]string `yaml:"checksums,omitempty"`
	// Extractor is "7z" or "zip".
	Extractor string `yaml:"extractor" env:"LOVEPACK_EXTRACTOR"`
	// SevenZip is the 7-Zip binary used by the 7z extractor.
	SevenZip string `yaml:"seven_zip" env:"LOVEPACK_SEVEN_ZIP"`
}

// ResourceEditor configures rcedit. With no metadata set the tool is only downloaded.
type ResourceEditor struct {
	// Enabled turns the download and metadata step on or off.
	Enabled bool `yaml:"enabled"`
	// URL is where the tool is downloaded from.
	URL string `yaml:"url"`
	// FileName is the tool's name inside the cache directory.
	FileName string `yaml:"file_name"`
	// Checksum is the optional base64 SHA-512 of the tool.
	Checksum string `yaml:"checksum,omitempty"`
	// Wrapper prefixes the tool invocation, e.g. ["wine"] on Linux.
	Wrapper []string `yaml:"wrapper,omitempty"`
	// Icon is a project-relative .ico stamped onto the executable.
	Icon string `yaml:"icon,omitempty"`
	// FileVersion sets the FILEVERSION resource.
	FileVersion string `yaml:"file_version,omitempty"`
	// ProductVersion sets the PRODUCTVERSION resource.
	ProductVersion string `yaml:"product_version,omitempty"`
	// VersionStrings sets string table entries such as ProductName or CompanyName.
	VersionStrings map[string]string `yaml:"version_strings,omitempty"`
}

const (
	// DefaultConfigFilename is looked up in the project root when no --config is given.
	DefaultConfigFilename = "lovepack.yaml"

	// DefaultFilePermissions is used for the config file written by `lovepack init`.
	DefaultFilePermissions = 0o644

	// ExtractorSevenZip extracts runtimes with an external 7-Zip binary.
	ExtractorSevenZip = "7z"
	// ExtractorZip extracts runtimes with archive/zip.
	ExtractorZip = "zip"

	defaultRuntimeVersion  = "0.10.2"
	defaultRuntimeURL      = "https://bitbucket.org/rude/love/downloads/love-{version}-win{arch}.exe"
	defaultResourceTool    = "rcedit.exe"
	defaultResourceToolURL = "https://github.com/electron/rcedit/releases/download/v0.1.0/rcedit.exe"
	defaultDownloadTimeout = 10 * time.Minute
)

var (
	// ErrArchRequired is returned when no architecture was selected anywhere.
	ErrArchRequired = errors.New("architecture must be set with --arch, LOVEPACK_ARCH or the config file")
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Default returns the stock settings for a LÖVE project, without an arch.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		CacheDir:        "cache",
		ReleaseDir:      "release",
		PackageName:     "game.love",
		ExecutableName:  "game.exe",
		Distributable:   "game-win{arch}.zip",
		DownloadTimeout: defaultDownloadTimeout,
		Runtime: Runtime{
			Version:   defaultRuntimeVersion,
			URL:       defaultRuntimeURL,
			Extractor: ExtractorSevenZip,
			SevenZip:  "7z",
		},
		ResourceEditor: ResourceEditor{
			Enabled:  true,
			URL:      defaultResourceToolURL,
			FileName: defaultResourceTool,
		},
		Extras: []string{"LICENSE.md"},
		ExcludeDirs: []string{
			"cache",
			"release",
			"binary",
			"tests",
			"spec",
			"docs",
			"build",
			".git",
		},
		ExcludeFiles: []string{
			// Platform entry points that never run on Windows.
			"linux.lua",
			"macosx.lua",
			"ios.lua",
			"android.lua",
			// Repository and CI metadata.
			".gitignore",
			".gitattributes",
			"appveyor.yml",
			".travis.yml",
			"README.md",
			"LICENSE.md",
			DefaultConfigFilename,
			// Generated artifacts.
			"game.love",
		},
	}
}

// Load reads the YAML file at path over Default() and applies LOVEPACK_*
// environment overrides. The file must exist. The result is not validated so
// callers can apply flag overrides first.
func Load(path string) (*Config, error) {
	return load(path, false)
}

// LoadProject is Load for lovepack.yaml in dir. A missing file means defaults.
func LoadProject(dir string) (*Config, error) {
	return load(filepath.Join(dir, DefaultConfigFilename), true)
}

func load(path string, optional bool) (*Config, error) {
	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && optional:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults, canonicalizes Arch and checks formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Arch == "" {
		return ErrArchRequired
	}

	arch, err := release.ParseArch(cfg.Arch)
	if err != nil {
		return err
	}

	cfg.Arch = arch.String()

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errInvalidLogLevel)
	}

	fillDefaults(cfg)

	if cfg.DownloadTimeout < 0 {
		cfg.DownloadTimeout = 0
	}

	if _, err = url.ParseRequestURI(release.ExpandTemplate(cfg.Runtime.URL, arch, cfg.Runtime.Version)); err != nil {
		return fmt.Errorf("invalid runtime URL: %w", err)
	}

	if !cfg.ResourceEditor.Enabled {
		return nil
	}

	if _, err = url.ParseRequestURI(cfg.ResourceEditor.URL); err != nil {
		return fmt.Errorf("invalid resource editor URL: %w", err)
	}

	return nil
}

// Names returns the layout names described by cfg.
func (c *Config) Names() release.Names {
	return release.Names{
		CacheDir:              c.CacheDir,
		ReleaseDir:            c.ReleaseDir,
		PackageName:           c.PackageName,
		ExecutableName:        c.ExecutableName,
		DistributableTemplate: c.Distributable,
		ResourceToolName:      c.ResourceEditor.FileName,
	}
}

// RuntimeURL returns the runtime archive URL for the configured arch and version.
func (c *Config) RuntimeURL() string {
	return release.ExpandTemplate(c.Runtime.URL, release.Arch(c.Arch), c.Runtime.Version)
}

// RuntimeChecksum returns the expected base64 SHA-512 for the configured arch, if any.
func (c *Config) RuntimeChecksum() string {
	return c.Runtime.Checksums[c.Arch]
}

func fillDefaults(cfg *Config) {
	def := Default()

	setIfEmpty(&cfg.LogLevel, def.LogLevel)
	setIfEmpty(&cfg.CacheDir, def.CacheDir)
	setIfEmpty(&cfg.ReleaseDir, def.ReleaseDir)
	setIfEmpty(&cfg.PackageName, def.PackageName)
	setIfEmpty(&cfg.ExecutableName, def.ExecutableName)
	setIfEmpty(&cfg.Distributable, def.Distributable)
	setIfEmpty(&cfg.Runtime.Version, def.Runtime.Version)
	setIfEmpty(&cfg.Runtime.URL, def.Runtime.URL)
	setIfEmpty(&cfg.Runtime.Extractor, def.Runtime.Extractor)
	setIfEmpty(&cfg.Runtime.SevenZip, def.Runtime.SevenZip)
	setIfEmpty(&cfg.ResourceEditor.URL, def.ResourceEditor.URL)
	setIfEmpty(&cfg.ResourceEditor.FileName, def.ResourceEditor.FileName)
}

func setIfEmpty(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
