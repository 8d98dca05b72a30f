package commands

import (
	"io"

	"github.com/sinch/sinch-quickstart/internal/harness"
)

type (
	AppConfig = appConfig
)

// WithOutput sets where the failure marker is printed.
func WithOutput(w io.Writer) Options {
	return func(o *options) {
		o.out = w
	}
}

// WithRunner sets how the harness runs commands.
func WithRunner(r harness.Runner) Options {
	return func(o *options) {
		o.runner = r
	}
}

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOutput redirects the command output for tests.
func (a *App) SetOutput(w io.Writer) {
	a.cmd.SetOut(w)
	a.cmd.SetErr(io.Discard)
}
