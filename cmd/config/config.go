// Package config implements the `merak config` commands.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/errors"
)

// Command creates the config command group.
func Command(_ *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand())
	return cmd
}

func initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Long:  "Writes config.yaml with default values. Without a path the per-user config directory is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := conf.UserConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			return WriteDefault(cmd.OutOrStdout(), path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// WriteDefault writes the default settings to path. Secrets are never written;
// API keys belong in the environment.
func WriteDefault(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf("config file %s already exists, use --force to overwrite", path).
			Component("config").
			Category(errors.CategoryConflict).
			Build()
	}

	if err := conf.SaveYAMLConfig(path, conf.DefaultSettings()); err != nil {
		return errors.New(err).
			Component("config").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
	return nil
}
