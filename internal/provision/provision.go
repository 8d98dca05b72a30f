// Package provision prepares an extracted SDK sample for the user.
//
// The sample source receives the application credentials in place of the placeholders shipped by Sinch, and a
// receipt describing the provisioning is left next to the sample projects.
package provision

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/fileutils"
	"github.com/sinch/sinch-quickstart/internal/payload"
	"github.com/ubuntu/decorate"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	keyPlaceholder    = "<APPLICATION KEY>"
	secretPlaceholder = "<APPLICATION SECRET>"
)

var (
	// ErrSampleNotFound is returned when the extracted archive does not contain the requested sample.
	ErrSampleNotFound = errors.New("sample not found in archive")

	// environmentHost matches a quoted Sinch environment host on a single line.
	environmentHost = regexp.MustCompile(`".*\.sinch\.com"`)
)

// SamplesDir returns the folder holding the sample projects in the extracted tree at root.
func SamplesDir(root string) string {
	return filepath.Join(root, constants.SDKFolder, constants.SamplesFolder)
}

// SamplePath returns the source folder of project in the extracted tree at root.
func SamplePath(root, project string) string {
	return filepath.Join(SamplesDir(root), project)
}

// ProjectPath returns the IDE project bundle of project in the extracted tree at root.
func ProjectPath(root, project string) string {
	return filepath.Join(SamplesDir(root), project+constants.ProjectExt)
}

// Verify checks that the extracted tree at root contains the source folder of project.
func Verify(root, project string) error {
	p := SamplePath(root, project)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s is missing from %s", ErrSampleNotFound, project, constants.SDKFolder)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSampleNotFound, p)
	}
	return nil
}

// InjectCredentials replaces the credential placeholders in the sample source found in samplePath.
//
// Every application key and secret placeholder is replaced, as is every quoted *.sinch.com host.
// The file keeps its permissions and is rewritten atomically.
func InjectCredentials(samplePath string, creds payload.Credentials) (err error) {
	defer decorate.OnError(&err, "could not inject credentials")

	p := filepath.Join(samplePath, constants.CredentialsFile)
	slog.Info(fmt.Sprintf("Injecting credentials into '%s'", p))

	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	src, err := readSource(p)
	if err != nil {
		return err
	}

	out := replaceCredentials(src, creds)
	if out == src {
		slog.Warn("No credential placeholder found in sample source", "file", p)
	}

	return fileutils.AtomicWrite(p, []byte(out), info.Mode().Perm())
}

// readSource reads path as UTF-8, dropping any byte order mark.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	dec := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	b, err := io.ReadAll(dec)
	if err != nil {
		return "", fmt.Errorf("could not decode %s: %v", path, err)
	}
	return string(b), nil
}

func replaceCredentials(src string, creds payload.Credentials) string {
	r := strings.NewReplacer(
		keyPlaceholder, creds.ApplicationKey,
		secretPlaceholder, creds.ApplicationSecret,
	)
	out := r.Replace(src)

	host := `"` + creds.Environment + `"`
	return environmentHost.ReplaceAllLiteralString(out, host)
}
