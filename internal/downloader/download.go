package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sinch/sinch-quickstart/internal/constants"
	"golang.org/x/time/rate"
)

// Download fetches rawURL into dir and returns the path of the downloaded file.
//
// Redirects are followed, and the file is named after the final URL, so that a stable link to the
// latest SDK ends up stored under its versioned archive name.
// Only fetch failures are retried, up to the configured number of attempts, with a doubling wait in between.
func (d Downloader) Download(ctx context.Context, rawURL, dir string) (dst string, err error) {
	defer d.client.CloseIdleConnections()

	wait := d.initialRetryPeriod
	for attempt := 1; ; attempt++ {
		dst, err = d.download(ctx, rawURL, dir)
		if !errors.Is(err, ErrFetchFailure) || attempt >= d.maxAttempts {
			return dst, err
		}

		slog.Warn("Retrying download after backoff period", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return "", errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(wait*2, d.maxRetryPeriod)
	}
}

// errStalled cancels an attempt whose body stopped making progress.
var errStalled = errors.New("no data received")

// download makes a single download attempt.
func (d Downloader) download(ctx context.Context, rawURL, dir string) (string, error) {
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Join(ErrFetchFailure, fmt.Errorf("failed to send HTTP request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Join(ErrFetchFailure, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	slog.Info(fmt.Sprintf("Downloading '%s'", finalURL))

	dst := filepath.Join(dir, archiveName(finalURL))
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	var body io.Reader = resp.Body
	if d.timeout > 0 {
		stall := time.AfterFunc(d.timeout, func() { cancel(errStalled) })
		defer stall.Stop()
		body = idleReader{r: resp.Body, timer: stall, timeout: d.timeout}
	}

	pw := &progressWriter{
		w:         f,
		total:     resp.ContentLength,
		sometimes: rate.Sometimes{Interval: d.progressInterval},
	}
	n, copyErr := io.Copy(pw, body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		removePartial(dst)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(context.Cause(reqCtx), errStalled) {
			return "", errors.Join(ErrFetchFailure, fmt.Errorf("%w for %s", errStalled, d.timeout))
		}
		if copyErr != nil {
			return "", errors.Join(ErrFetchFailure, fmt.Errorf("failed to write %s: %v", dst, copyErr))
		}
		return "", fmt.Errorf("failed to close %s: %v", dst, closeErr)
	}

	if n <= 0 {
		removePartial(dst)
		return "", fmt.Errorf("%w: failed to download '%s' to '%s'", ErrEmptyDownload, rawURL, dst)
	}

	slog.Debug("Downloaded archive", "file", dst, "bytes", n)
	return dst, nil
}

// archiveName returns the base name of the URL path, or the default download name if there is none.
func archiveName(u *url.URL) string {
	name := path.Base(u.Path)
	switch name {
	case "", ".", "..", "/":
		return constants.DefaultDownloadName
	}
	return name
}

func removePartial(p string) {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove partial download", "file", p, "error", err)
	}
}

// idleReader pushes back the stall timer every time some data is read.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (ir idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

// progressWriter logs the download progress, at most once per interval.
type progressWriter struct {
	w         io.Writer
	written   int64
	total     int64
	sometimes rate.Sometimes
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)
	pw.sometimes.Do(func() {
		if pw.total > 0 {
			slog.Debug("Download progress", "bytes", pw.written, "total", pw.total, "percent", pw.written*100/pw.total)
			return
		}
		slog.Debug("Download progress", "bytes", pw.written)
	})
	return n, err
}
