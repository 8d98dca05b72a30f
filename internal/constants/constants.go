// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default desktop and working paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Version is the version of the application.
var Version = "Dev"

const (
	// CmdName is the name of the command line tool.
	CmdName = "sinch-quickstart"

	// MatrixCmdName is the name of the compatibility harness.
	MatrixCmdName = "quickstart-matrix"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelInfo

	// DefaultArchiveURL redirects to the latest Sinch iOS SDK.
	DefaultArchiveURL = "http://www.sinch.com/ios-sdk"

	// DefaultEnvironment is the Sinch environment used when the payload does not name one.
	DefaultEnvironment = "sandbox.sinch.com"

	// DefaultDownloadName is the archive file name used when the final URL has no usable base name.
	DefaultDownloadName = "Sinch.download.tmp"

	// DefaultTimeout is how long the archive download may wait on the network before giving up.
	DefaultTimeout = 30 * time.Second

	// DesktopFolder is the name of the desktop folder under the user home directory.
	DesktopFolder = "Desktop"

	// DestinationPrefix prefixes the sample name to form the destination folder name.
	DestinationPrefix = "Sinch-"

	// MaxDestinationCandidates bounds the number of suffixed destination folders tried.
	MaxDestinationCandidates = 99

	// SDKFolder is the top level folder of the unpacked SDK archive.
	SDKFolder = "Sinch"

	// SamplesFolder holds the sample projects inside the SDK folder.
	SamplesFolder = "samples"

	// CredentialsFile is the sample source file receiving the application credentials.
	CredentialsFile = "AppDelegate.m"

	// ProjectExt is the extension of the IDE project bundle next to each sample.
	ProjectExt = ".xcodeproj"

	// ReceiptFile is the name of the provisioning receipt left in the destination.
	ReceiptFile = ".sinch-quickstart.toml"

	// XcodePath is where Xcode is expected to be installed.
	XcodePath = "/Applications/Xcode.app"

	// DefaultPinFile is the version-pin marker written by the harness.
	DefaultPinFile = ".go-version"
)

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultDesktopPath is the default path to the user desktop folder.
// It returns an empty string when the home directory cannot be determined.
func GetDefaultDesktopPath(opts ...option) string {
	o := options{baseDir: os.UserHomeDir}
	for _, opt := range opts {
		opt(&o)
	}

	base := getBaseDir(o.baseDir)
	if base == "" {
		return ""
	}
	return filepath.Join(base, DesktopFolder)
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
