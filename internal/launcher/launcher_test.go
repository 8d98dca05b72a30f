package launcher_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sinch/sinch-quickstart/internal/launcher"
	"github.com/sinch/sinch-quickstart/internal/testutils"
	"github.com/stretchr/testify/require"
)

func TestCheckHost(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		goos        string
		xcode       bool
		xcodeIsFile bool

		wantErr error
	}{
		"Accepts macOS with Xcode": {goos: "darwin", xcode: true},

		"Error on Linux":                {goos: "linux", xcode: true, wantErr: launcher.ErrUnsupportedHost},
		"Error on Windows":              {goos: "windows", wantErr: launcher.ErrUnsupportedHost},
		"Error on macOS without Xcode":  {goos: "darwin", wantErr: launcher.ErrNoIDE},
		"Error when Xcode is not a dir": {goos: "darwin", xcodeIsFile: true, wantErr: launcher.ErrNoIDE},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			xcode := filepath.Join(t.TempDir(), "Xcode.app")
			if tc.xcode {
				require.NoError(t, os.Mkdir(xcode, 0750), "Setup: could not create Xcode bundle")
			}
			if tc.xcodeIsFile {
				require.NoError(t, os.WriteFile(xcode, nil, 0600), "Setup: could not create Xcode file")
			}

			l := launcher.New(launcher.WithGOOS(tc.goos), launcher.WithXcodePath(xcode))
			err := l.CheckHost()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "CheckHost should return the expected error")
				return
			}
			require.NoError(t, err, "CheckHost should not return an error")
		})
	}
}

func TestCheckHostNamesDistribution(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		goos      string
		osRelease string

		want string
	}{
		"Names distribution from pretty name": {goos: "linux", osRelease: "NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 24.04.2 LTS\"\n", want: "running on linux (Ubuntu 24.04.2 LTS)"},
		"Names distribution from name":        {goos: "linux", osRelease: "NAME=Fedora\n", want: "running on linux (Fedora)"},
		"Falls back to os without os-release": {goos: "linux", want: "running on linux"},
		"Falls back to os without name":       {goos: "linux", osRelease: "ID=arch\n", want: "running on linux"},
		"Does not read os-release on Windows": {goos: "windows", osRelease: "NAME=Fedora\n", want: "running on windows"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := filepath.Join(t.TempDir(), "os-release")
			if tc.osRelease != "" {
				require.NoError(t, os.WriteFile(p, []byte(tc.osRelease), 0600), "Setup: could not write os-release")
			}

			l := launcher.New(launcher.WithGOOS(tc.goos), launcher.WithOSReleasePath(p))
			err := l.CheckHost()
			require.ErrorIs(t, err, launcher.ErrUnsupportedHost, "CheckHost should reject the host")
			require.True(t, strings.HasSuffix(err.Error(), tc.want), "Error %q should end with %q", err, tc.want)
		})
	}
}

func TestDefaultOpener(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		goos string

		want []string
	}{
		"Uses open on macOS":       {goos: "darwin", want: []string{"open"}},
		"Uses xdg-open on Linux":   {goos: "linux", want: []string{"xdg-open"}},
		"Uses explorer on Windows": {goos: "windows", want: []string{"explorer"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l := launcher.New(launcher.WithGOOS(tc.goos))
			require.Equal(t, tc.want, l.Opener(), "Unexpected default opener")
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		script        string
		missingTarget bool

		wantErr bool
	}{
		"Opens existing path": {script: `test -e "$1"`},

		"Error when opener fails":        {script: `echo "cannot open" >&2; exit 3`, wantErr: true},
		"Error when path does not exist": {script: "exit 0", missingTarget: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if !testutils.IsUnix() {
				t.Skip("opener scripts require a POSIX shell")
			}

			target := t.TempDir()
			if tc.missingTarget {
				target = filepath.Join(target, "missing")
			}

			l := launcher.New(launcher.WithOpener("sh", "-c", tc.script, "opener"))
			err := l.Open(context.Background(), target)
			if tc.wantErr {
				require.ErrorIs(t, err, launcher.ErrOpenFailed, "Open should return ErrOpenFailed")
				return
			}
			require.NoError(t, err, "Open should not return an error")
		})
	}
}

func TestOpenCancelled(t *testing.T) {
	t.Parallel()
	if !testutils.IsUnix() {
		t.Skip("opener scripts require a POSIX shell")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := launcher.New(launcher.WithOpener("sh", "-c", "exec sleep 5", "opener"))
	err := l.Open(ctx, t.TempDir())
	require.ErrorIs(t, err, launcher.ErrOpenFailed, "Open should fail when the context is cancelled")
}
