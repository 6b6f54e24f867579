// Package git finds the Python files staged for commit
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
	"github.com/mrz1836/go-pycheck/internal/files"
)

// rootLookupTimeout bounds the rev-parse call used to locate the repository
const rootLookupTimeout = 5 * time.Second

// Repository represents a Git repository
type Repository struct {
	root string
}

// NewRepository creates a new Repository instance
func NewRepository(root string) *Repository {
	return &Repository{root: root}
}

// Root returns the repository root directory
func (r *Repository) Root() string {
	return r.root
}

// StagedFiles returns the repository-relative paths added, copied, modified or
// renamed in the index
func (r *Repository) StagedFiles(ctx context.Context) ([]string, error) {
	output, err := r.git(ctx, "diff", "--cached", "--name-only", "--diff-filter=ACMR")
	if err != nil {
		return nil, fmt.Errorf("failed to get staged files: %w", err)
	}
	return parseFileList(output), nil
}

// StagedPythonFiles returns absolute paths of staged Python files that still
// exist in the working tree
func (r *Repository) StagedPythonFiles(ctx context.Context) ([]string, error) {
	staged, err := r.StagedFiles(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(staged))
	for _, rel := range staged {
		if !files.IsPython(rel) {
			continue
		}
		full := filepath.Join(r.root, filepath.FromSlash(rel))
		if _, statErr := os.Stat(full); statErr != nil {
			continue
		}
		paths = append(paths, full)
	}
	return paths, nil
}

func (r *Repository) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return output, nil
}

// FindRepositoryRoot finds the root of the Git repository containing dir
func FindRepositoryRoot(ctx context.Context, dir string) (string, error) {
	if ctx == nil {
		return "", prerrors.ErrNilContext
	}

	ctx, cancel := context.WithTimeout(ctx, rootLookupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", prerrors.ErrNotGitRepository, dir)
		}
		return "", fmt.Errorf("cannot run git: %w", err)
	}

	root := strings.TrimSpace(string(output))
	if root == "" {
		return "", prerrors.ErrRepositoryRootNotFound
	}

	return filepath.FromSlash(root), nil
}

// parseFileList parses newline-separated file list
func parseFileList(output []byte) []string {
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return []string{}
	}

	lines := bytes.Split(output, []byte("\n"))
	list := make([]string, 0, len(lines))

	for _, line := range lines {
		file := string(bytes.TrimSpace(line))
		if file != "" {
			list = append(list, file)
		}
	}

	return list
}
