package downloader

import (
	"net/http"
	"net/url"
	"time"
)

// WithInitialRetryPeriod sets the initial retry period for the downloader, doubled after each failed attempt.
func WithInitialRetryPeriod(d time.Duration) Options {
	return func(o *options) {
		o.initialRetryPeriod = d
	}
}

// WithMaxRetryPeriod caps the retry period of the downloader.
func WithMaxRetryPeriod(d time.Duration) Options {
	return func(o *options) {
		o.maxRetryPeriod = d
	}
}

// WithTransport sets the transport used by the HTTP client.
func WithTransport(rt http.RoundTripper) Options {
	return func(o *options) {
		o.transport = rt
	}
}

func ArchiveName(u *url.URL) string {
	return archiveName(u)
}
