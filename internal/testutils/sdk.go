package testutils

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// AppDelegateTemplate is the sample source shipped in the test SDK archives.
const AppDelegateTemplate = `#import "AppDelegate.h"
#import <Sinch/Sinch.h>

@implementation AppDelegate

- (void)initSinchClientWithUserId:(NSString *)userId {
  if (!_client) {
    _client = [Sinch clientWithApplicationKey:@"<APPLICATION KEY>"
                            applicationSecret:@"<APPLICATION SECRET>"
                              environmentHost:@"sandbox.sinch.com"
                                       userId:userId];
  }
}

@end
`

// SampleProjects are the sample projects shipped in the test SDK archives.
var SampleProjects = []string{"SinchIM", "SinchCalling", "SinchPSTN", "SinchVideo"}

// Compression is the compression used by WriteArchive.
type Compression int

const (
	// NoCompression writes a plain tarball.
	NoCompression Compression = iota
	// GzipCompression writes a gzip compressed tarball.
	GzipCompression
	// ZstdCompression writes a zstd compressed tarball.
	ZstdCompression
)

func (c Compression) String() string {
	switch c {
	case GzipCompression:
		return "gzip"
	case ZstdCompression:
		return "zstd"
	default:
		return "tar"
	}
}

// ArchiveEntry is an entry written by WriteArchive.
type ArchiveEntry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// SDKEntries returns the entries of a minimal Sinch SDK archive.
func SDKEntries() []ArchiveEntry {
	entries := []ArchiveEntry{
		{Name: "Sinch/", Type: tar.TypeDir, Mode: 0755},
		{Name: "Sinch/README.md", Body: "# Sinch SDK\n", Mode: 0644},
		{Name: "Sinch/Sinch.framework/Versions/A/Sinch", Body: "binary", Mode: 0755},
		{Name: "Sinch/Sinch.framework/Sinch", Type: tar.TypeSymlink, Linkname: "Versions/A/Sinch"},
		{Name: "Sinch/samples/", Type: tar.TypeDir, Mode: 0755},
	}
	for _, p := range SampleProjects {
		entries = append(entries,
			ArchiveEntry{Name: "Sinch/samples/" + p + "/", Type: tar.TypeDir, Mode: 0755},
			ArchiveEntry{Name: "Sinch/samples/" + p + "/AppDelegate.m", Body: AppDelegateTemplate, Mode: 0644},
			ArchiveEntry{Name: "Sinch/samples/" + p + ".xcodeproj/project.pbxproj", Body: "// !$*UTF8*$!\n", Mode: 0644},
		)
	}
	return entries
}

// BuildArchive returns a tarball of entries with the given compression.
func BuildArchive(t *testing.T, c Compression, entries []ArchiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case GzipCompression:
		w = gzip.NewWriter(&buf)
	case ZstdCompression:
		w, err = zstd.NewWriter(&buf)
		require.NoError(t, err, "Setup: could not create zstd writer")
	default:
		w = nopCloser{&buf}
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		mode := e.Mode
		if mode == 0 {
			mode = 0644
		}
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: typ,
			Mode:     mode,
			Linkname: e.Linkname,
		}
		if typ == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		require.NoError(t, tw.WriteHeader(hdr), "Setup: could not write tar header for %s", e.Name)
		if typ == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err, "Setup: could not write tar body for %s", e.Name)
		}
	}
	require.NoError(t, tw.Close(), "Setup: could not close tar writer")
	require.NoError(t, w.Close(), "Setup: could not close compressor")

	return buf.Bytes()
}

// WriteArchive writes a tarball of entries to path.
func WriteArchive(t *testing.T, path string, c Compression, entries []ArchiveEntry) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, BuildArchive(t, c, entries), 0600), "Setup: could not write archive")
}

// SDKBzip2Fixture returns the content of the bzip2 compressed test SDK archive.
// It holds the same entries as SDKEntries.
func SDKBzip2Fixture(t *testing.T) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(CurrentDir(), "testdata", "Sinch-iOS-test.tar.bz2"))
	require.NoError(t, err, "Setup: could not read SDK fixture")
	return data
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
