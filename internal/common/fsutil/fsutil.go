package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/comfyui/models
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// EnsureDirs creates every directory in dirs (with parents). It keeps going
// past individual failures and returns the first error encountered, so one
// bad path does not leave the remaining directories uncreated.
func EnsureDirs(dirs ...string) error {
	var first error
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil && first == nil {
			first = fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return first
}
