// Package bootstrap runs the quickstart pipeline: it fetches the Sinch SDK, provisions the requested sample
// with the user credentials, places it on the desktop and opens it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sinch/sinch-quickstart/internal/archive"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/downloader"
	"github.com/sinch/sinch-quickstart/internal/launcher"
	"github.com/sinch/sinch-quickstart/internal/payload"
	"github.com/sinch/sinch-quickstart/internal/placement"
	"github.com/sinch/sinch-quickstart/internal/provision"
)

// ErrNoDesktopPath is returned when no desktop folder is configured and none could be detected.
var ErrNoDesktopPath = errors.New("could not determine the desktop folder")

// Fetcher downloads an archive into a directory.
type Fetcher interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// Opener checks the host and opens paths in the platform IDE or file browser.
type Opener interface {
	CheckHost() error
	Open(ctx context.Context, path string) error
}

// Bootstrap provisions one sample.
type Bootstrap struct {
	payload payload.Payload
	project string

	desktopDir string
	tempDir    string
	fetcher    Fetcher
	opener     Opener

	noOpen        bool
	skipHostCheck bool
	keepTemp      bool

	now func() time.Time
}

type options struct {
	desktopDir    string
	tempDir       string
	fetcher       Fetcher
	opener        Opener
	noOpen        bool
	skipHostCheck bool
	keepTemp      bool
	now           func() time.Time
}

// Options represents an optional function to override Bootstrap default values.
type Options func(*options)

// WithDesktopDir sets the folder receiving the provisioned SDK.
func WithDesktopDir(dir string) Options {
	return func(o *options) {
		o.desktopDir = dir
	}
}

// WithFetcher sets how the archive is downloaded.
func WithFetcher(f Fetcher) Options {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithOpener sets how the host is checked and the result opened.
func WithOpener(op Opener) Options {
	return func(o *options) {
		o.opener = op
	}
}

// WithNoOpen skips opening the result once placed.
func WithNoOpen(v bool) Options {
	return func(o *options) {
		o.noOpen = v
	}
}

// WithSkipHostCheck skips checking the host operating system and IDE.
func WithSkipHostCheck(v bool) Options {
	return func(o *options) {
		o.skipHostCheck = v
	}
}

// WithKeepTemp keeps the working directory, including the downloaded archive, after the run.
func WithKeepTemp(v bool) Options {
	return func(o *options) {
		o.keepTemp = v
	}
}

// New returns a Bootstrap for p, which is validated first.
func New(p payload.Payload, args ...Options) (*Bootstrap, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	project, err := p.ProjectName()
	if err != nil {
		return nil, err
	}

	opts := options{
		now: time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}

	if opts.desktopDir == "" {
		opts.desktopDir = constants.GetDefaultDesktopPath()
	}
	if opts.desktopDir == "" {
		return nil, ErrNoDesktopPath
	}
	if opts.fetcher == nil {
		opts.fetcher = downloader.New()
	}
	if opts.opener == nil {
		opts.opener = launcher.New()
	}

	return &Bootstrap{
		payload:       p,
		project:       project,
		desktopDir:    opts.desktopDir,
		tempDir:       opts.tempDir,
		fetcher:       opts.fetcher,
		opener:        opts.opener,
		noOpen:        opts.noOpen,
		skipHostCheck: opts.skipHostCheck,
		keepTemp:      opts.keepTemp,
		now:           opts.now,
	}, nil
}

// Run provisions the sample and returns the folder it was placed in.
func (b Bootstrap) Run(ctx context.Context) (dest string, err error) {
	slog.Info(fmt.Sprintf("Bootstrapping Sinch '%s' sample", b.payload.Sample))

	if !b.skipHostCheck {
		if err := b.opener.CheckHost(); err != nil {
			return "", err
		}
	}

	work, err := os.MkdirTemp(b.tempDir, constants.CmdName+"-*")
	if err != nil {
		return "", fmt.Errorf("could not create working directory: %v", err)
	}
	defer func() {
		if b.keepTemp {
			slog.Info(fmt.Sprintf("Keeping working directory '%s'", work))
			return
		}
		if rerr := os.RemoveAll(work); rerr != nil {
			slog.Warn("Failed to remove working directory", "dir", work, "error", rerr)
		}
	}()

	stage := filepath.Join(work, "sdk")
	if err := b.stage(ctx, work, stage); err != nil {
		return "", err
	}

	dest, err = placement.Place(stage, b.desktopDir, b.payload.Sample)
	if err != nil {
		return "", err
	}

	if b.noOpen {
		slog.Debug("Not opening the sample", "destination", dest)
		return dest, nil
	}
	if err := b.opener.Open(ctx, provision.SamplesDir(dest)); err != nil {
		return dest, err
	}
	slog.Info("Opening Xcode")
	if err := b.opener.Open(ctx, provision.ProjectPath(dest, b.project)); err != nil {
		return dest, err
	}

	return dest, nil
}

// stage downloads and provisions the SDK in stage, using work for the download.
func (b Bootstrap) stage(ctx context.Context, work, stage string) error {
	downloads := filepath.Join(work, "download")
	if err := os.Mkdir(downloads, 0750); err != nil {
		return fmt.Errorf("could not create download directory: %v", err)
	}

	path, err := b.fetcher.Download(ctx, b.payload.Archive, downloads)
	if err != nil {
		return err
	}

	if err := archive.Extract(ctx, path, stage); err != nil {
		return err
	}

	if err := provision.Verify(stage, b.project); err != nil {
		return err
	}

	if err := provision.InjectCredentials(provision.SamplePath(stage, b.project), b.payload.Credentials); err != nil {
		return err
	}

	r, err := provision.NewReceipt(b.payload, b.now())
	if err != nil {
		return err
	}
	return provision.WriteReceipt(stage, r)
}
