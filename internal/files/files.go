// Package files classifies input paths and walks directories for eligible Python files
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// PythonExtensions are the file extensions pycheck checks
var PythonExtensions = []string{".py", ".pyi"} //nolint:gochecknoglobals // read-only table

// IsPython reports whether path has a Python source extension
func IsPython(path string) bool {
	return slices.Contains(PythonExtensions, strings.ToLower(filepath.Ext(path)))
}

// Classify splits inputs into in-scope paths (Python files or existing directories)
// and skipped ones, preserving input order
func Classify(paths []string) (inScope, skipped []string) {
	for _, p := range paths {
		if isDir(p) || IsPython(p) {
			inScope = append(inScope, p)
		} else {
			skipped = append(skipped, p)
		}
	}
	return inScope, skipped
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Walker selects eligible files below directories using include/exclude globs
// and, optionally, the .gitignore at the walk root
type Walker struct {
	Include          []string
	Exclude          []string
	RespectGitignore bool
	Logger           *slog.Logger
}

// Collect expands paths into the eligible file list. Python files named directly
// are always kept when they exist; directories are walked.
func (w *Walker) Collect(paths []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			w.logger().Debug("skipping unreadable path", "path", p, "error", err)
		case info.IsDir():
			if walkErr := w.Walk(p, func(file string) { add(file) }); walkErr != nil {
				w.logger().Debug("directory walk stopped", "path", p, "error", walkErr)
			}
		case IsPython(p):
			add(p)
		}
	}
	return out
}

// Count returns the number of eligible files under paths
func (w *Walker) Count(paths []string) int {
	return len(w.Collect(paths))
}

// Walk calls fn for every eligible file below root. Unreadable entries are skipped.
func (w *Walker) Walk(root string, fn func(path string)) error {
	var gi *ignore.GitIgnore
	if w.RespectGitignore {
		gi = loadGitignore(root, w.logger())
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger().Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil //nolint:nilerr // the root itself is never filtered
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.excluded(rel, true) || (gi != nil && gi.MatchesPath(rel+"/")) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if w.excluded(rel, false) || (gi != nil && gi.MatchesPath(rel)) {
			return nil
		}
		if w.included(rel) {
			fn(path)
		}
		return nil
	})
}

func (w *Walker) included(rel string) bool {
	if len(w.Include) == 0 {
		return IsPython(rel)
	}
	for _, pattern := range w.Include {
		if match(pattern, rel) {
			return true
		}
	}
	return false
}

// excluded matches rel against every exclude pattern. Relative patterns also
// match at any depth, so __pycache__/** excludes pkg/__pycache__ too.
func (w *Walker) excluded(rel string, dir bool) bool {
	for _, pattern := range w.Exclude {
		candidates := []string{pattern}
		if !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "/") {
			candidates = append(candidates, "**/"+pattern)
		}
		for _, p := range candidates {
			p = strings.TrimPrefix(p, "/")
			if match(p, rel) || (dir && match(p, rel+"/")) {
				return true
			}
		}
	}
	return false
}

func match(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

func loadGitignore(root string, logger *slog.Logger) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("cannot stat .gitignore", "path", path, "error", err)
		}
		return nil
	}

	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		logger.Debug("ignoring unreadable .gitignore", "path", path, "error", err)
		return nil
	}
	return gi
}

// SkippedSummary formats the skipped-input list used by the NON-PYTHON notices
func SkippedSummary(skipped []string) string {
	return fmt.Sprintf("Skipped %d non-Python file(s): %s", len(skipped), strings.Join(skipped, ", "))
}
