package bootstrap

import "time"

// WithTempDir sets the parent of the working directory.
func WithTempDir(dir string) Options {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithNow sets the clock used to stamp receipts.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}
