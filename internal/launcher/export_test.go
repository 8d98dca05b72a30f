package launcher

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Options {
	return func(o *options) {
		o.goos = goos
	}
}

// WithXcodePath overrides the expected Xcode installation path.
func WithXcodePath(p string) Options {
	return func(o *options) {
		o.xcodePath = p
	}
}

// WithOSReleasePath overrides the os-release file describing the Linux distribution.
func WithOSReleasePath(p string) Options {
	return func(o *options) {
		o.osReleasePath = p
	}
}

// Opener returns the command used to open paths.
func (l Launcher) Opener() []string {
	return l.opener
}
