package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/toyz/docmeta/internal/errors"
)

// skipDirs are never descended into by a recursive scan
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// DirectoryScanner finds package directories for an inspection run
type DirectoryScanner struct{}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{}
}

// ScanDirectories resolves the provided paths to absolute package
// directories. Go-style patterns like "./..." add every subdirectory that
// holds non-test Go files; a plain path is returned as is, so a missing or
// empty directory is reported when it is loaded.
func (s *DirectoryScanner) ScanDirectories(rootDirs []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, rootDir := range rootDirs {
		recursive := rootDir == "..." || strings.HasSuffix(rootDir, "/...")
		base := strings.TrimSuffix(strings.TrimSuffix(rootDir, "..."), "/")
		if base == "" {
			base = "."
		}

		cleanPath, err := filepath.Abs(base)
		if err != nil {
			return nil, errors.WrapWithOperation("process", fmt.Sprintf("path resolution %s", base), err)
		}

		if !recursive {
			add(cleanPath)
			continue
		}

		err = filepath.WalkDir(cleanPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != cleanPath && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			ok, err := hasGoFiles(path)
			if err != nil {
				return err
			}
			if ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WrapFileSystemError("scan", cleanPath, err)
		}
	}

	return dirs, nil
}

func hasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			return true, nil
		}
	}
	return false, nil
}
