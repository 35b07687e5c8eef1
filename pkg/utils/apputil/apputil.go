// Package apputil holds small filesystem helpers shared by config loading and
// the admin tool.
package apputil

import (
	"os"
	"path/filepath"
)

// FileExists reports whether the path names an existing regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}

// EnsureDir creates the directory containing path if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
