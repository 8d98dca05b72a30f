// Package commands implements the sinch-quickstart command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sinch/sinch-quickstart/internal/bootstrap"
	"github.com/sinch/sinch-quickstart/internal/cli"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/downloader"
	"github.com/sinch/sinch-quickstart/internal/payload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	ctx    context.Context
	cancel context.CancelFunc
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity     int           `mapstructure:"verbose"`
	DesktopDir    string        `mapstructure:"desktop-dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	NoOpen        bool          `mapstructure:"no-open"`
	SkipHostCheck bool          `mapstructure:"skip-host-check"`
	KeepTemp      bool          `mapstructure:"keep-temp"`
}

// New creates a new App instance with default values.
func New() (*App, error) {
	a := App{}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.cmd = &cobra.Command{
		Use:   constants.CmdName + " <base64-json>",
		Short: "Bootstrap a Sinch iOS SDK sample",
		Long: `Bootstrap a Sinch iOS SDK sample with your application credentials.

The payload is the base64 encoded JSON document generated by the Sinch dashboard quickstart.
The latest SDK is downloaded, the sample receives your credentials, and the result is placed
in ~/Desktop/Sinch-<sample> before being opened in Xcode.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
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
			p, err := payload.Decode(args[0])
			if err != nil {
				a.cmd.SilenceUsage = false
				return err
			}

			return a.run(p)
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}
	if err := a.viper.BindPFlags(a.cmd.Flags()); err != nil {
		return nil, err
	}

	a.installDecode()
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue DEBUG (-v) output")

	cmd.Flags().StringVar(&app.config.DesktopDir, "desktop-dir", constants.GetDefaultDesktopPath(), "directory the sample is placed in")
	cmd.Flags().DurationVar(&app.config.Timeout, "timeout", constants.DefaultTimeout, "timeout of each network wait of the SDK download")
	cmd.Flags().IntVar(&app.config.Retries, "retries", 0, "number of download retries on network or server errors")
	cmd.Flags().BoolVar(&app.config.NoOpen, "no-open", false, "do not open the sample once placed")
	cmd.Flags().BoolVar(&app.config.SkipHostCheck, "skip-host-check", false, "do not check for macOS and Xcode")
	cmd.Flags().BoolVar(&app.config.KeepTemp, "keep-temp", false, "keep the working directory, including the downloaded archive")

	if err := cmd.MarkFlagDirname("desktop-dir"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark desktop-dir flag as directory: %v", err))
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

// Quit cancels any running bootstrap.
func (a *App) Quit() {
	a.cancel()
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) run(p payload.Payload) error {
	if a.config.Retries < 0 {
		a.cmd.SilenceUsage = false
		return fmt.Errorf("retries must be positive, got %d", a.config.Retries)
	}

	d := downloader.New(
		downloader.WithTimeout(a.config.Timeout),
		downloader.WithMaxAttempts(a.config.Retries+1),
	)

	b, err := bootstrap.New(p,
		bootstrap.WithDesktopDir(a.config.DesktopDir),
		bootstrap.WithFetcher(d),
		bootstrap.WithNoOpen(a.config.NoOpen),
		bootstrap.WithSkipHostCheck(a.config.SkipHostCheck),
		bootstrap.WithKeepTemp(a.config.KeepTemp),
	)
	if err != nil {
		return err
	}

	dest, err := b.Run(a.ctx)
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Sinch '%s' sample is ready in '%s'", p.Sample, dest))
	return nil
}
