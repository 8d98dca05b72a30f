// Package placement moves the provisioned SDK to its final location on the user desktop.
package placement

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/fileutils"
	"github.com/ubuntu/decorate"
)

var (
	// ErrNoDesktop is returned when the desktop folder does not exist.
	ErrNoDesktop = errors.New("desktop folder not found")
	// ErrNoCandidate is returned when every destination candidate is already taken.
	ErrNoCandidate = errors.New("no available destination")
)

// Candidate returns the first path among base, base-1, base-2 … that does not exist yet.
func Candidate(base string) (string, error) {
	for i := range constants.MaxDestinationCandidates {
		p := base
		if i > 0 {
			p = fmt.Sprintf("%s-%d", base, i)
		}

		exists, err := fileutils.Exists(p)
		if err != nil {
			return "", err
		}
		if !exists {
			return p, nil
		}
		slog.Debug("Destination already taken", "path", p)
	}
	return "", fmt.Errorf("%w: %s and its %d alternatives already exist", ErrNoCandidate, base, constants.MaxDestinationCandidates-1)
}

// Destination returns the base destination of sample in desktopDir.
func Destination(desktopDir, sample string) string {
	return filepath.Join(desktopDir, constants.DestinationPrefix+sample)
}

// Place moves the folder src to a new Sinch-<sample> folder in desktopDir and returns its path.
// Existing folders are never overwritten.
func Place(src, desktopDir, sample string) (dest string, err error) {
	defer decorate.OnError(&err, "could not place SDK on the desktop")

	info, err := os.Stat(desktopDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNoDesktop, desktopDir)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrNoDesktop, desktopDir)
	}

	dest, err = Candidate(Destination(desktopDir, sample))
	if err != nil {
		return "", err
	}

	slog.Info(fmt.Sprintf("Placing Sinch SDK including sample in '%s'", dest))
	if err := move(src, dest, os.Rename); err != nil {
		return "", err
	}
	return dest, nil
}

// move renames src to dst, copying the tree instead when rename fails, as across filesystems.
func move(src, dst string, rename func(string, string) error) error {
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	slog.Debug("Rename failed, copying instead", "source", src, "destination", dst, "error", err)

	if err := fileutils.CopyTree(src, dst); err != nil {
		return errors.Join(err, os.RemoveAll(dst))
	}
	if err := os.RemoveAll(src); err != nil {
		slog.Warn("Failed to remove source after copy", "source", src, "error", err)
	}
	return nil
}
