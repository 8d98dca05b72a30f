package testutils

import (
	"path/filepath"
	"runtime"
)

// CurrentDir returns the directory of the caller source file.
func CurrentDir() string {
	_, p, _, _ := runtime.Caller(1)
	return filepath.Dir(p)
}
