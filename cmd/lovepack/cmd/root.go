package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lovepack/internal/domain/release"
	"github.com/oshokin/lovepack/internal/service/packager"
	"github.com/oshokin/lovepack/internal/version"
)

var (
	// configPath to the configuration YAML file; lovepack.yaml in the project directory when empty.
	configPath string
	// arch selects the 32 or 64-bit runtime.
	arch string
	// projectDir is the root of the game project.
	projectDir string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd builds the Windows release of the game in the project directory.
	rootCmd = &cobra.Command{
		Use:          "lovepack",
		Short:        "Package a LÖVE game as a standalone Windows executable",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				Arch:       arch,
				ProjectDir: projectDir,
				LogLevel:   logLevel,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the lovepack CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file (default <project-dir>/lovepack.yaml)")
	flags.StringVarP(&arch, "arch", "a", "", "target architecture: "+release.SupportedArchesText())
	flags.StringVarP(&projectDir, "project-dir", "C", ".", "game project root")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(initCmd)
}
