package testutils

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TreeContents returns every entry below dir, keyed by slash separated relative path.
//
// Directories map to "<dir>", symlinks to "-> target" and regular files to their content,
// with Windows line endings normalized.
func TreeContents(t *testing.T, dir string) map[string]string {
	t.Helper()

	entries := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			lnk, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entries[rel] = "-> " + filepath.ToSlash(lnk)
		case d.IsDir():
			entries[rel] = "<dir>"
		default:
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entries[rel] = string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")))
		}
		return nil
	})
	require.NoError(t, err, "Setup: could not read directory tree %s", dir)

	return entries
}
