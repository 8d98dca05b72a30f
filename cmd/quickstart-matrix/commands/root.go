// Package commands implements the quickstart-matrix command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sinch/sinch-quickstart/internal/cli"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/harness"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	out    io.Writer
	runner harness.Runner

	ctx    context.Context
	cancel context.CancelFunc
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int    `mapstructure:"verbose"`
	Dir       string `mapstructure:"dir"`

	harness.Config `mapstructure:",squash"`
}

type options struct {
	out    io.Writer
	runner harness.Runner
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New creates a new App instance with default values.
func New(args ...Options) (*App, error) {
	opts := options{
		out: os.Stdout,
	}
	for _, opt := range args {
		opt(&opts)
	}

	defaults, err := harness.DefaultConfig()
	if err != nil {
		return nil, err
	}

	a := App{out: opts.out, runner: opts.runner}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.cmd = &cobra.Command{
		Use:   constants.MatrixCmdName,
		Short: "Check " + constants.CmdName + " against several toolchain versions",
		Long: `Check ` + constants.CmdName + ` against several toolchain versions.

Every configured version is installed, then pinned in turn while every fixture payload is bootstrapped.
FAIL is printed and the run stops at the first failure. The pin file is always removed.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.MatrixCmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}
			slog.Debug("got app config", "config", a.config)

			cli.SetVerbosity(a.config.Verbosity)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run()
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	a.viper.SetDefault("versions", defaults.Versions)
	a.viper.SetDefault("fixtures", defaults.Fixtures)
	a.viper.SetDefault("install", defaults.Install)
	a.viper.SetDefault("run", defaults.Run)

	installRootCmd(&a, defaults)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}
	if err := a.viper.BindPFlags(a.cmd.Flags()); err != nil {
		return nil, err
	}

	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App, defaults harness.Config) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue DEBUG (-v) output")

	cmd.Flags().StringVar(&app.config.Dir, "dir", ".", "directory the pin file is written in and fixtures are read from")
	cmd.Flags().StringVar(&app.config.PinFile, "pin-file", defaults.PinFile, "name of the version pin file")
	cmd.Flags().DurationVar(&app.config.Timeout, "timeout", defaults.Timeout, "maximum duration of each command, 0 for no limit")

	if err := cmd.MarkFlagDirname("dir"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark dir flag as directory: %v", err))
	}
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Quit stops the running check.
func (a *App) Quit() {
	a.cancel()
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) run() error {
	opts := []harness.Options{
		harness.WithDir(a.config.Dir),
		harness.WithOutput(a.out),
	}
	if a.runner != nil {
		opts = append(opts, harness.WithRunner(a.runner))
	}

	h, err := harness.New(a.config.Config, opts...)
	if err != nil {
		a.cmd.SilenceUsage = false
		return err
	}

	return h.Run(a.ctx)
}
