package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/merak-travel/merak/cmd/config"
	"github.com/merak-travel/merak/cmd/lookup"
	"github.com/merak-travel/merak/cmd/plan"
	"github.com/merak-travel/merak/cmd/serve"
	"github.com/merak-travel/merak/cmd/version"
	"github.com/merak-travel/merak/internal/buildinfo"
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "merak",
		Short:         "Merak Trip Planner",
		Long:          "Merak plans trips with a destination-grounded agent, from the console or over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		// binding only fails on a nil flag, which is a programming error
		panic(err)
	}

	versionCmd := version.Command(build)
	configCmd := configcmd.Command(settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		plan.Command(settings),
		lookup.Command(settings),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that only print or write files
		if cmd == versionCmd || cmd.Parent() == configCmd {
			return nil
		}
		return initialize(settings, build)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		errors.FlushTelemetry(2 * time.Second)
	}

	return rootCmd
}

// initialize is called before any subcommand runs, after flags are parsed.
// It sets up logging and error telemetry.
func initialize(settings *conf.Settings, build *buildinfo.Context) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(centralLogger)

	if settings.Telemetry.Enabled {
		reporter, err := errors.InitSentry(errors.SentryOptions{
			DSN:         settings.Telemetry.SentryDSN,
			Release:     "merak@" + build.GetVersion(),
			Environment: settings.Telemetry.Environment,
		})
		if err != nil {
			return err
		}
		centralLogger.Module("telemetry").Debug("error telemetry configured",
			logger.Bool("enabled", reporter.IsEnabled()))
	}

	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
