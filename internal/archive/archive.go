// Package archive extracts the SDK archive.
//
// Archives are tarballs, compressed with bzip2, gzip or zstd, or not compressed at all. The compression is
// detected from the content rather than the file name, as the downloaded file may not carry an extension.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ubuntu/decorate"
)

var (
	// ErrUnsupportedArchive is returned when the file is not a tarball in a supported compression format.
	ErrUnsupportedArchive = errors.New("unsupported archive")
	// ErrUnsafePath is returned when an archive entry would be written outside of the destination.
	ErrUnsafePath = errors.New("archive entry escapes the destination")
)

// Format is the compression format of an archive.
type Format int

const (
	// Unknown is returned when the content is not recognised.
	Unknown Format = iota
	// Tar is an uncompressed tarball.
	Tar
	// Bzip2 is a bzip2 compressed tarball.
	Bzip2
	// Gzip is a gzip compressed tarball.
	Gzip
	// Zstd is a zstd compressed tarball.
	Zstd
)

func (f Format) String() string {
	switch f {
	case Tar:
		return "tar"
	case Bzip2:
		return "tar.bz2"
	case Gzip:
		return "tar.gz"
	case Zstd:
		return "tar.zst"
	default:
		return "unknown"
	}
}

var (
	bzip2Magic = []byte("BZh")
	gzipMagic  = []byte{0x1f, 0x8b}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarMagic   = []byte("ustar")
)

const tarMagicOffset = 257

// Detect returns the format of the archive starting at r, without consuming it.
func Detect(r *bufio.Reader) Format {
	head, _ := r.Peek(tarMagicOffset + len(tarMagic))
	switch {
	case bytes.HasPrefix(head, bzip2Magic):
		return Bzip2
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case len(head) == tarMagicOffset+len(tarMagic) && bytes.Equal(head[tarMagicOffset:], tarMagic):
		return Tar
	default:
		return Unknown
	}
}

// Extract unpacks the archive at path into dst, which is created if needed.
//
// Regular files, directories, symlinks and hard links are extracted. Entries resolving outside of dst,
// including through symlinks extracted earlier, are rejected.
func Extract(ctx context.Context, path, dst string) (err error) {
	defer decorate.OnError(&err, "could not extract %s", filepath.Base(path))

	slog.Info(fmt.Sprintf("Extracting '%s'", filepath.Base(path)))

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	format := Detect(br)
	slog.Debug("Detected archive format", "file", path, "format", format)

	var r io.Reader
	switch format {
	case Tar:
		r = br
	case Bzip2:
		r = bzip2.NewReader(br)
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
		}
		defer gz.Close()
		r = gz
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
		}
		defer zr.Close()
		r = zr
	default:
		return fmt.Errorf("%w: unable to read package file %s", ErrUnsupportedArchive, path)
	}

	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0750); err != nil {
		return err
	}

	return untar(ctx, tar.NewReader(r), dst)
}

func untar(ctx context.Context, tr *tar.Reader, dst string) error {
	var entries int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if entries == 0 {
				return fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
			}
			return fmt.Errorf("failed to read archive entry: %v", err)
		}
		entries++

		target, err := resolve(dst, dst, filepath.Clean(filepath.FromSlash(hdr.Name)), false)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if _, err := resolve(dst, filepath.Dir(target), hdr.Linkname, true); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := resolve(dst, dst, filepath.Clean(filepath.FromSlash(hdr.Linkname)), false)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return err
			}
			if err := os.Link(source, target); err != nil {
				return err
			}
		default:
			slog.Debug("Skipping unsupported archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}

	if entries == 0 {
		return fmt.Errorf("%w: archive is empty", ErrUnsupportedArchive)
	}
	slog.Debug("Extracted archive", "entries", entries, "destination", dst)
	return nil
}

// maxLinks bounds the number of symlinks followed while resolving a single name.
const maxLinks = 255

// resolve returns where name, relative to dir, lands on disk once the symlinks already extracted under root
// are followed. The last element is only followed when followLast is set.
//
// Any step leaving root is ErrUnsafePath. So is going up after an element that does not exist yet, as that
// element could later be extracted as a symlink.
func resolve(root, dir, name string, followLast bool) (string, error) {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrUnsafePath, name)
	}

	parts := strings.Split(filepath.ToSlash(name), "/")
	cur := dir
	var links int
	var missing bool
	for len(parts) > 0 {
		p := parts[0]
		parts = parts[1:]

		switch p {
		case "", ".":
			continue
		case "..":
			if cur == root || missing {
				return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
			}
			cur = filepath.Dir(cur)
			continue
		}

		next := filepath.Join(cur, p)
		info, err := os.Lstat(next)
		if errors.Is(err, fs.ErrNotExist) {
			missing = true
			cur = next
			continue
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&fs.ModeSymlink == 0 || (len(parts) == 0 && !followLast) {
			cur = next
			continue
		}

		if links++; links > maxLinks {
			return "", fmt.Errorf("%w: %s: too many levels of symbolic links", ErrUnsafePath, name)
		}
		link, err := os.Readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(link) {
			return "", fmt.Errorf("%w: %s goes through absolute link %s", ErrUnsafePath, name, link)
		}
		parts = append(strings.Split(filepath.ToSlash(link), "/"), parts...)
	}
	return cur, nil
}

func writeFile(r io.Reader, target string, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return err
	}

	// Never write through an existing symlink.
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %v", target, err)
	}
	return nil
}
