// Package launcher checks the host can open the sample and opens it in the platform file browser and IDE.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/sinch/sinch-quickstart/internal/cmdutils"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"gopkg.in/ini.v1"
)

const defaultOSReleasePath = "/etc/os-release"

var (
	// ErrUnsupportedHost is returned when the host operating system cannot build the sample.
	ErrUnsupportedHost = errors.New("only macOS is supported")
	// ErrNoIDE is returned when the IDE is not installed.
	ErrNoIDE = errors.New("no Xcode installation found")
	// ErrOpenFailed is returned when the opener exits with an error.
	ErrOpenFailed = errors.New("could not open path")
)

// Launcher opens paths with the platform opener.
type Launcher struct {
	goos          string
	xcodePath     string
	osReleasePath string
	opener        []string
}

type options struct {
	goos          string
	xcodePath     string
	osReleasePath string
	opener        []string
}

// Options represents an optional function to override Launcher default values.
type Options func(*options)

// WithOpener overrides the command used to open paths. The path is appended to args.
func WithOpener(cmd string, args ...string) Options {
	return func(o *options) {
		o.opener = append([]string{cmd}, args...)
	}
}

// New returns a Launcher for the current host.
func New(args ...Options) Launcher {
	opts := options{
		goos:          runtime.GOOS,
		xcodePath:     constants.XcodePath,
		osReleasePath: defaultOSReleasePath,
	}
	for _, opt := range args {
		opt(&opts)
	}

	if len(opts.opener) == 0 {
		opts.opener = defaultOpener(opts.goos)
	}

	return Launcher{
		goos:          opts.goos,
		xcodePath:     opts.xcodePath,
		osReleasePath: opts.osReleasePath,
		opener:        opts.opener,
	}
}

func defaultOpener(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"explorer"}
	default:
		return []string{"xdg-open"}
	}
}

// CheckHost returns an error if the host cannot build the sample.
func (l Launcher) CheckHost() error {
	if l.goos != "darwin" {
		return fmt.Errorf("%w: running on %s", ErrUnsupportedHost, l.hostName())
	}

	info, err := os.Stat(l.xcodePath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s not found, install it from the App Store", ErrNoIDE, l.xcodePath)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not an application bundle", ErrNoIDE, l.xcodePath)
	}
	return nil
}

// hostName returns the distribution name from os-release when available, the operating system name otherwise.
func (l Launcher) hostName() string {
	if l.goos != "linux" {
		return l.goos
	}

	cfg, err := ini.Load(l.osReleasePath)
	if err != nil {
		slog.Debug("Failed to read os-release", "path", l.osReleasePath, "error", err)
		return l.goos
	}

	name := cfg.Section("").Key("PRETTY_NAME").String()
	if name == "" {
		name = cfg.Section("").Key("NAME").String()
	}
	if name == "" {
		return l.goos
	}
	return fmt.Sprintf("%s (%s)", l.goos, name)
}

// Open opens path with the platform opener. Only the exit status of the opener is checked.
func (l Launcher) Open(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	args := append(append([]string{}, l.opener[1:]...), path)
	slog.Debug("Opening path", "command", l.opener[0], "args", args)

	stdout, stderr, err := cmdutils.Run(ctx, l.opener[0], args...)
	if err != nil {
		return fmt.Errorf("%w %s: %s exited with code %d: %v", ErrOpenFailed, path, l.opener[0], cmdutils.ExitCode(err),
			strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		slog.Debug("Opener output", "output", out)
	}
	return nil
}
