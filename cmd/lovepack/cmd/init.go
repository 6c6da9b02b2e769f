package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshokin/lovepack/internal/config"
	"github.com/oshokin/lovepack/internal/domain/release"
)

// errConfigExists is returned by init when it would overwrite a config without --force.
var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// force allows init to overwrite an existing configuration file.
var force bool

// initCmd writes the default configuration into the project directory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(projectDir, config.DefaultConfigFilename)
		}

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s: %w", path, errConfigExists)
		}

		cfg := config.Default()

		if arch != "" {
			parsed, err := release.ParseArch(arch)
			if err != nil {
				return err
			}

			cfg.Arch = parsed.String()
		}

		if err := config.Save(path, cfg); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
}
