// Package fileutil implements file utilities.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exist returns true if a file or directory exists.
func Exist(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(name)
	return err == nil
}

// MkdirAll creates each directory with all its parents.
// Existing directories are left untouched, so calling it twice is safe.
func MkdirAll(perm os.FileMode, dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			return fmt.Errorf("empty directory path in %q", dirs)
		}
		if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
			return fmt.Errorf("%q exists and is not a directory", dir)
		}
		if err := os.MkdirAll(dir, perm); err != nil {
			return fmt.Errorf("mkdirall %q: %v", dir, err)
		}
	}
	return nil
}

// IsDirWriteable checks if dir is writable by writing and removing a file.
// It returns error if dir is NOT writable.
// If the director does not exist, it returns nil.
func IsDirWriteable(dir string) error {
	if !Exist(dir) {
		return nil
	}
	f := filepath.Join(dir, ".touch")
	// grants owner to make/remove files inside the directory
	if err := os.WriteFile(f, []byte(""), 0700); err != nil {
		return err
	}
	return os.Remove(f)
}
