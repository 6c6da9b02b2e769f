package packager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oshokin/lovepack/internal/config"
	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/logger"
	"github.com/oshokin/lovepack/internal/service/archive"
	"github.com/oshokin/lovepack/internal/service/cache"
	"github.com/oshokin/lovepack/internal/service/common"
	"github.com/oshokin/lovepack/internal/service/extract"
	"github.com/oshokin/lovepack/internal/service/fuse"
	"github.com/oshokin/lovepack/internal/service/resedit"
	"github.com/oshokin/lovepack/internal/service/stage"
)

// Options contains inputs for the packager entry point.
// Empty fields fall back to the environment, the config file and the defaults.
type Options struct {
	// ConfigPath is the settings file; lovepack.yaml in ProjectDir by default.
	ConfigPath string
	// Arch overrides the configured architecture.
	Arch string
	// ProjectDir is the game's root directory; the working directory by default.
	ProjectDir string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// packager holds everything one build needs. Callers use Run.
type packager struct {
	cfg        *config.Config
	layout     *release.Layout
	downloader *common.Downloader
	exclusions *release.Exclusions
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "lovepack")

	pkg, err := newPackager(opts)
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "arch", pkg.layout.Arch.String())

	if err = pkg.run(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Windows build completed successfully")

	return nil
}

// newPackager resolves settings in flag > env > file > default order and derives the layout.
func newPackager(opts *Options) (*packager, error) {
	if opts == nil {
		opts = &Options{}
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	var (
		cfg        *config.Config
		err        error
		configPath = opts.ConfigPath
	)

	if configPath == "" {
		configPath = filepath.Join(projectDir, config.DefaultConfigFilename)
		cfg, err = config.LoadProject(projectDir)
	} else {
		cfg, err = config.Load(configPath)
	}

	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Arch != "" {
		cfg.Arch = opts.Arch
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	layout, err := release.NewLayout(projectDir, release.Arch(cfg.Arch), cfg.Names())
	if err != nil {
		return nil, fmt.Errorf("build layout: %w", err)
	}

	return &packager{
		cfg:        cfg,
		layout:     layout,
		downloader: common.NewDownloader(common.WithTimeout(cfg.DownloadTimeout)),
		exclusions: outputExclusions(cfg, layout, configPath),
	}, nil
}

// outputExclusions adds lovepack's own outputs to the configured exclusions
// so a rebuild never packages the previous build.
func outputExclusions(cfg *config.Config, layout *release.Layout, configPath string) *release.Exclusions {
	var dirs []string

	for _, dir := range []string{layout.CacheRoot, layout.ReleaseRoot} {
		if rel, ok := layout.RelativeToRoot(dir); ok {
			dirs = append(dirs, rel)
		}
	}

	files := []string{
		filepath.Base(layout.PackagePath),
		filepath.Base(layout.DistributablePath),
		filepath.Base(configPath),
	}

	return release.NewExclusions(cfg.ExcludeDirs, cfg.ExcludeFiles).With(dirs, files)
}

func (p *packager) run(ctx context.Context) error {
	if err := p.provisionRuntime(ctx); err != nil {
		return fmt.Errorf("provision runtime cache: %w", err)
	}

	rel, err := stage.NewPreparer(p.layout).Prepare(ctx)
	if err != nil {
		return fmt.Errorf("prepare release directory: %w", err)
	}

	defer rel.Discard()

	if err = stage.StageRuntime(ctx, p.layout.RuntimeDir, rel.Dir(), release.RuntimeLibraries(p.layout.Arch)); err != nil {
		return fmt.Errorf("stage runtime files: %w", err)
	}

	if err = stage.StageExtras(ctx, p.layout.ProjectRoot, rel.Dir(), p.cfg.Extras); err != nil {
		return fmt.Errorf("stage extra files: %w", err)
	}

	pkg, err := archive.PackageAssets(ctx, p.layout.ProjectRoot, p.layout.PackagePath, p.exclusions)
	if err != nil {
		return fmt.Errorf("package assets: %w", err)
	}

	runtimeExe, cleanup, err := p.editResources(ctx)
	if err != nil {
		return fmt.Errorf("edit executable resources: %w", err)
	}

	defer cleanup()

	fused, err := fuse.Fuse(ctx, runtimeExe, pkg.Path, rel.ExecutablePath())
	if err != nil {
		return fmt.Errorf("fuse executable: %w", err)
	}

	if err = rel.Commit(ctx); err != nil {
		return fmt.Errorf("commit release directory: %w", err)
	}

	dist, err := archive.CompressRelease(ctx, p.layout.ReleaseDir, p.layout.DistributablePath)
	if err != nil {
		return fmt.Errorf("compress release: %w", err)
	}

	logger.InfoKV(ctx, "Build artifacts",
		"package", pkg.Path, "package_bytes", pkg.Size, "package_files", len(pkg.Entries),
		"executable", p.layout.ExecutablePath, "executable_bytes", fused,
		"distributable", dist.Path, "distributable_bytes", dist.Size)

	return nil
}

func (p *packager) provisionRuntime(ctx context.Context) error {
	extractor, err := extract.New(p.cfg.Runtime.Extractor, p.cfg.Runtime.SevenZip)
	if err != nil {
		return err
	}

	provisioner := cache.NewProvisioner(p.layout, p.downloader, extractor, cache.Source{
		URL:      p.cfg.RuntimeURL(),
		Checksum: p.cfg.RuntimeChecksum(),
	})

	_, err = provisioner.Ensure(ctx)

	return err
}

// editResources makes sure the resource editor is cached and returns the
// runtime executable to fuse, stamped with the configured metadata.
// A disabled editor is neither downloaded nor run.
func (p *packager) editResources(ctx context.Context) (string, func(), error) {
	hook, err := p.resourceHook(ctx)
	if err != nil {
		return "", func() {}, err
	}

	runtimeExe := filepath.Join(p.layout.RuntimeDir, release.RuntimeExecutable)

	return resedit.StampRuntime(ctx, hook, runtimeExe, p.layout.CacheRoot)
}

//nolint:ireturn // The hook is either the real tool or a no-op.
func (p *packager) resourceHook(ctx context.Context) (resedit.Hook, error) {
	settings := p.cfg.ResourceEditor
	if !settings.Enabled {
		return resedit.Noop{}, nil
	}

	icon := settings.Icon
	if icon != "" && !filepath.IsAbs(icon) {
		icon = filepath.Join(p.layout.ProjectRoot, filepath.FromSlash(icon))
	}

	tool := resedit.NewTool(resedit.ToolOptions{
		Path:     p.layout.ResourceToolPath,
		URL:      settings.URL,
		Checksum: settings.Checksum,
		Wrapper:  settings.Wrapper,
		Metadata: resedit.Metadata{
			Icon:           icon,
			FileVersion:    settings.FileVersion,
			ProductVersion: settings.ProductVersion,
			VersionStrings: settings.VersionStrings,
		},
	}, p.downloader)

	if _, err := tool.Ensure(ctx); err != nil {
		return nil, err
	}

	return tool, nil
}
