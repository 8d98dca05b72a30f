// Package downloader implements the downloader component.
// The downloader component is responsible for fetching the Sinch SDK archive to a local directory.
package downloader

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sinch/sinch-quickstart/internal/constants"
)

var (
	// ErrFetchFailure is returned when the archive could not be fetched, either due to a network error or a non-2xx status code.
	ErrFetchFailure = errors.New("archive fetch failed")
	// ErrEmptyDownload is returned when the server answered with an empty archive.
	ErrEmptyDownload = errors.New("downloaded archive is empty")
)

// Downloader fetches archives over HTTP.
type Downloader struct {
	client  *http.Client
	timeout time.Duration

	maxAttempts        int
	initialRetryPeriod time.Duration
	maxRetryPeriod     time.Duration
	progressInterval   time.Duration
}

type options struct {
	timeout            time.Duration
	maxAttempts        int
	initialRetryPeriod time.Duration
	maxRetryPeriod     time.Duration
	progressInterval   time.Duration
	transport          http.RoundTripper
}

// Options represents an optional function to override Downloader default values.
type Options func(*options)

// WithTimeout sets how long connecting, waiting for the response headers, or waiting for the next bytes of
// the body may take. It does not bound the whole transfer. 0 disables it.
func WithTimeout(d time.Duration) Options {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxAttempts sets the maximum number of attempts for a download. Values below 1 mean a single attempt.
func WithMaxAttempts(n int) Options {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// New returns a new Downloader.
func New(args ...Options) Downloader {
	opts := options{
		timeout:            constants.DefaultTimeout,
		maxAttempts:        1,
		initialRetryPeriod: 2 * time.Second,
		maxRetryPeriod:     30 * time.Second,
		progressInterval:   time.Second,
	}
	for _, opt := range args {
		opt(&opts)
	}
	if opts.maxAttempts < 1 {
		opts.maxAttempts = 1
	}
	if opts.transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: opts.timeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = opts.timeout
		t.ResponseHeaderTimeout = opts.timeout
		opts.transport = t
	}

	slog.Debug("Creating new downloader", "timeout", opts.timeout, "maxAttempts", opts.maxAttempts)

	return Downloader{
		client:             &http.Client{Transport: opts.transport},
		timeout:            opts.timeout,
		maxAttempts:        opts.maxAttempts,
		initialRetryPeriod: opts.initialRetryPeriod,
		maxRetryPeriod:     opts.maxRetryPeriod,
		progressInterval:   opts.progressInterval,
	}
}
