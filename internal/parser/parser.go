package parser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SafeResolvePath resolves a user-provided path to an absolute path and ensures
// it doesn't escape the expected root directory via symlinks or ".." components.
func SafeResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	// EvalSymlinks resolves symlinks and cleans ".." components against the real filesystem.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("evaluating symlinks: %w", err)
	}

	return resolved, nil
}

// GatherFiles returns the sorted .tf files under path. A single .tf file
// yields itself; a directory is walked recursively. The sort keeps unit
// discovery order deterministic, though output never depends on it.
func GatherFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var files []string
	if !info.IsDir() {
		if strings.HasSuffix(path, ".tf") {
			files = append(files, path)
		}
		return files, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".tf") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}

	sort.Strings(files)
	return files, nil
}
