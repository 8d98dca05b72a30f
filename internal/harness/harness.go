// Package harness checks the quickstart pipeline against several toolchain versions and fixture payloads.
//
// Every version is installed first. Then, for each version in order, the version pin file is written and the
// pipeline is run once per fixture. The first failure stops the run.
package harness

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sinch/sinch-quickstart/internal/cmdutils"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/ubuntu/decorate"
	"gopkg.in/yaml.v3"
)

// FailMarker is printed on the output when a run fails.
const FailMarker = "FAIL"

var (
	// ErrFailed is returned when an installation or a pipeline run exits with an error.
	ErrFailed = errors.New("compatibility check failed")
	// ErrInvalidConfig is returned when the configuration cannot drive a run.
	ErrInvalidConfig = errors.New("invalid harness configuration")
)

//go:embed defaults.yaml
var defaults []byte

// Config describes what the harness runs.
//
// Command templates may reference {version}, {payload} (the trimmed fixture content) and {fixture} (its path).
// Timeout bounds every single command; 0 means no limit.
type Config struct {
	Versions []string      `mapstructure:"versions" yaml:"versions"`
	Fixtures []string      `mapstructure:"fixtures" yaml:"fixtures"`
	PinFile  string        `mapstructure:"pin-file" yaml:"pin-file"`
	Install  [][]string    `mapstructure:"install" yaml:"install"`
	Run      []string      `mapstructure:"run" yaml:"run"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() (Config, error) {
	var c Config
	if err := yaml.Unmarshal(defaults, &c); err != nil {
		return Config{}, fmt.Errorf("could not parse default configuration: %v", err)
	}
	if c.PinFile == "" {
		c.PinFile = constants.DefaultPinFile
	}
	return c, nil
}

// Validate checks c can drive a run.
func (c Config) Validate() error {
	if len(c.Versions) == 0 {
		return fmt.Errorf("%w: no version", ErrInvalidConfig)
	}
	if len(c.Fixtures) == 0 {
		return fmt.Errorf("%w: no fixture", ErrInvalidConfig)
	}
	if len(c.Run) == 0 {
		return fmt.Errorf("%w: no run command", ErrInvalidConfig)
	}
	for i, cmd := range c.Install {
		if len(cmd) == 0 {
			return fmt.Errorf("%w: install command %d is empty", ErrInvalidConfig, i)
		}
	}
	if c.PinFile == "" {
		return fmt.Errorf("%w: no pin file", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Runner runs one command and returns an error if it does not exit successfully.
type Runner func(ctx context.Context, cmd string, args ...string) error

// Harness runs the compatibility matrix.
type Harness struct {
	conf   Config
	dir    string
	out    io.Writer
	runner Runner
}

type options struct {
	dir    string
	out    io.Writer
	runner Runner
}

// Options represents an optional function to override Harness default values.
type Options func(*options)

// WithDir sets the directory the pin file is written in and relative fixtures are read from.
func WithDir(dir string) Options {
	return func(o *options) {
		o.dir = dir
	}
}

// WithOutput sets where the failure marker is printed.
func WithOutput(w io.Writer) Options {
	return func(o *options) {
		o.out = w
	}
}

// WithRunner sets how commands are run.
func WithRunner(r Runner) Options {
	return func(o *options) {
		o.runner = r
	}
}

// New returns a Harness for conf.
func New(conf Config, args ...Options) (Harness, error) {
	if err := conf.Validate(); err != nil {
		return Harness{}, err
	}

	opts := options{
		dir:    ".",
		out:    os.Stdout,
		runner: commandRunner(conf.Timeout),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return Harness{
		conf:   conf,
		dir:    opts.dir,
		out:    opts.out,
		runner: opts.runner,
	}, nil
}

// Run installs every version then runs every fixture against every version, stopping at the first failure.
// The pin file is removed whatever the outcome.
func (h Harness) Run(ctx context.Context) (err error) {
	pin := filepath.Join(h.dir, h.conf.PinFile)
	defer func() {
		if rerr := os.Remove(pin); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("could not remove pin file: %v", rerr))
		}
	}()
	defer func() {
		if errors.Is(err, ErrFailed) {
			fmt.Fprintln(h.out, FailMarker)
		}
	}()

	payloads, err := h.readFixtures()
	if err != nil {
		return err
	}

	for _, v := range h.conf.Versions {
		for _, tmpl := range h.conf.Install {
			if err := h.exec(ctx, expand(tmpl, v, "", "")); err != nil {
				return fmt.Errorf("%w: installing %s: %v", ErrFailed, v, err)
			}
		}
	}

	for _, v := range h.conf.Versions {
		slog.Info(fmt.Sprintf("Checking toolchain %s", v))
		if err := os.WriteFile(pin, []byte(v+"\n"), 0600); err != nil {
			return fmt.Errorf("could not write pin file: %v", err)
		}

		for i, f := range h.conf.Fixtures {
			if err := h.exec(ctx, expand(h.conf.Run, v, payloads[i], f)); err != nil {
				return fmt.Errorf("%w: %s with %s: %v", ErrFailed, v, f, err)
			}
		}
	}

	slog.Info("All toolchains passed", "versions", len(h.conf.Versions), "fixtures", len(h.conf.Fixtures))
	return nil
}

func (h Harness) readFixtures() (payloads []string, err error) {
	defer decorate.OnError(&err, "could not read fixtures")

	for _, f := range h.conf.Fixtures {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(h.dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, strings.TrimSpace(string(data)))
	}
	return payloads, nil
}

func (h Harness) exec(ctx context.Context, cmd []string) error {
	slog.Debug("Running command", "command", cmd)
	return h.runner(ctx, cmd[0], cmd[1:]...)
}

// expand substitutes the placeholders in a copy of tmpl.
func expand(tmpl []string, version, payload, fixture string) []string {
	r := strings.NewReplacer("{version}", version, "{payload}", payload, "{fixture}", fixture)

	out := make([]string, 0, len(tmpl))
	for _, a := range tmpl {
		out = append(out, r.Replace(a))
	}
	return out
}

// commandRunner returns the Runner executing commands on the system, killing them after timeout if set.
func commandRunner(timeout time.Duration) Runner {
	return func(ctx context.Context, cmd string, args ...string) error {
		run := cmdutils.Run
		if timeout > 0 {
			run = func(ctx context.Context, cmd string, args ...string) (*bytes.Buffer, *bytes.Buffer, error) {
				return cmdutils.RunWithTimeout(ctx, timeout, cmd, args...)
			}
		}

		stdout, stderr, err := run(ctx, cmd, args...)
		logOutput(cmd, stdout, stderr)
		if err != nil {
			return fmt.Errorf("%s exited with code %d: %v", cmd, cmdutils.ExitCode(err), err)
		}
		return nil
	}
}

func logOutput(cmd string, stdout, stderr *bytes.Buffer) {
	if out := strings.TrimSpace(stdout.String()); out != "" {
		slog.Debug("Command output", "command", cmd, "stdout", out)
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		slog.Info("Command error output", "command", cmd, "stderr", out)
	}
}
