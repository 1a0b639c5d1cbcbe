// Package overlay builds the logical namespace of a configuration package:
// a mapping from slash-separated relative paths to the concrete file that
// backs each of them, with environment-specific files overriding global ones.
package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMissingDirectory indicates a required configuration directory is absent.
var ErrMissingDirectory = errors.New("configuration directory does not exist")

// Namespace maps logical POSIX-style relative paths to absolute file locations.
// It is immutable after Build returns.
type Namespace map[string]string

// Build scans the global directory first and the environment directory
// second, so a path present in both is bound to the environment location.
// Both roots must exist as directories before any scanning takes place.
func Build(globalDir, envDir string) (Namespace, error) {
	if err := requireDirectory(globalDir, "global"); err != nil {
		return nil, err
	}
	if err := requireDirectory(envDir, "environment"); err != nil {
		return nil, err
	}

	ns := make(Namespace)
	if err := scan(globalDir, ns); err != nil {
		return nil, fmt.Errorf("scan global directory %s: %w", globalDir, err)
	}
	if err := scan(envDir, ns); err != nil {
		return nil, fmt.Errorf("scan environment directory %s: %w", envDir, err)
	}
	return ns, nil
}

func requireDirectory(dir, role string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s directory %s", ErrMissingDirectory, role, dir)
	}
	return nil
}

func scan(root string, ns Namespace) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		ns[filepath.ToSlash(rel)] = abs
		return nil
	})
}
