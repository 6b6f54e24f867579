// Package runner provides the check execution engine: it classifies inputs,
// runs the enabled checks and merges their results
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/go-pycheck/internal/checks"
	"github.com/mrz1836/go-pycheck/internal/checks/pyright"
	"github.com/mrz1836/go-pycheck/internal/checks/ruff"
	"github.com/mrz1836/go-pycheck/internal/checks/stub"
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/files"
	"github.com/mrz1836/go-pycheck/internal/issue"
)

// DefaultContentName is the virtual filename used for content checks without one
const DefaultContentName = "stdin.py"

// Checker runs the enabled checks over a path set
type Checker struct {
	config   *config.Config
	registry *checks.Registry
	opts     Options
	logger   *slog.Logger
}

// Options configures a Checker
type Options struct {
	// Parallel runs the enabled checks concurrently. Results are merged in the same order either way.
	Parallel         bool
	ProgressCallback ProgressCallback
	Logger           *slog.Logger
}

// ProgressCallback is called as each check starts and finishes
type ProgressCallback func(checkName, status string)

// NewRegistry builds the registry of every built-in check for cfg
func NewRegistry(cfg *config.Config, logger *slog.Logger) *checks.Registry {
	return checks.NewRegistry(
		ruff.NewFormatRunner(cfg, logger),
		ruff.NewLintRunner(cfg, logger),
		pyright.NewRunner(cfg, logger),
		stub.NewRunner(cfg, logger),
	)
}

// New creates a Checker with the built-in checks
func New(cfg *config.Config, opts Options) *Checker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return NewWithRegistry(cfg, NewRegistry(cfg, opts.Logger), opts)
}

// NewWithRegistry creates a Checker that runs the checks held by registry
func NewWithRegistry(cfg *config.Config, registry *checks.Registry, opts Options) *Checker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		config:   cfg,
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Config returns the configuration the checker was built with
func (c *Checker) Config() *config.Config {
	return c.config
}

// CheckFiles runs every enabled check over paths. An empty path list means the
// current directory. Inputs that are not Python files or directories are skipped
// and reported with a notice; when nothing is in scope no check runs at all.
// Files are only rewritten when fix is set; Config.AutoFix is left to the caller.
func (c *Checker) CheckFiles(ctx context.Context, paths []string, fix bool) *issue.CheckResult {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	inScope, skipped := files.Classify(paths)
	if len(inScope) == 0 {
		result := issue.NewResult()
		result.Issues = append(result.Issues, issue.Notice(
			issue.CodeNonPython,
			fmt.Sprintf("No Python files to check. %s. pycheck only supports .py and .pyi files.", files.SkippedSummary(skipped)),
			issue.SeverityInfo,
			issue.SourceControl,
		))
		return result
	}

	walker := &files.Walker{
		Include:          c.config.IncludePatterns,
		Exclude:          c.config.ExcludePatterns,
		RespectGitignore: c.config.RespectGitignore,
		Logger:           c.logger,
	}

	result := issue.NewResult()
	result.FilesChecked = walker.Count(inScope)

	for _, partial := range c.runAll(ctx, inScope, fix) {
		result = result.Merge(partial)
	}

	if len(skipped) > 0 {
		result.Prepend(issue.Notice(issue.CodeNonPython, files.SkippedSummary(skipped), issue.SeverityInfo, issue.SourceControl))
	}
	return result
}

// CheckContent checks source text by writing it to a scratch file. Issues are
// reported under filename, which defaults to DefaultContentName.
func (c *Checker) CheckContent(ctx context.Context, content, filename string) *issue.CheckResult {
	if filename == "" {
		filename = DefaultContentName
	}

	tmp, err := os.CreateTemp("", "pycheck-*.py")
	if err != nil {
		c.logger.Warn("cannot create scratch file", "error", err)
		return c.scratchFailure(err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			c.logger.Debug("cannot remove scratch file", "path", tmpPath, "error", removeErr)
		}
	}()

	_, writeErr := tmp.WriteString(content)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		if writeErr == nil {
			writeErr = closeErr
		}
		c.logger.Warn("cannot write scratch file", "path", tmpPath, "error", writeErr)
		return c.scratchFailure(writeErr)
	}

	resolved, evalErr := filepath.EvalSymlinks(tmpPath)
	if evalErr != nil {
		resolved = ""
	}

	result := c.CheckFiles(ctx, []string{tmpPath}, false)
	result.RewriteFile(filename, tmpPath, resolved)
	return result
}

// scratchFailure reports a content check that never reached the checks
func (c *Checker) scratchFailure(err error) *issue.CheckResult {
	result := issue.NewResult()
	result.Issues = append(result.Issues, issue.Notice(
		issue.CodeScratchFile,
		fmt.Sprintf("Could not stage content for checking: %v", err),
		issue.SeverityError,
		issue.SourceControl,
	))
	return result
}

// runAll executes the enabled checks and returns their results in execution order
func (c *Checker) runAll(ctx context.Context, paths []string, fix bool) []*issue.CheckResult {
	runners := c.registry.Enabled(c.config)
	results := make([]*issue.CheckResult, len(runners))

	if !c.opts.Parallel {
		for i, r := range runners {
			results[i] = c.runCheck(ctx, r, paths, fix)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range runners {
		g.Go(func() error {
			results[i] = c.runCheck(gctx, r, paths, fix)
			return nil
		})
	}
	_ = g.Wait() // runners never return errors

	return results
}

// runCheck executes a single check
func (c *Checker) runCheck(ctx context.Context, r checks.Runner, paths []string, fix bool) *issue.CheckResult {
	c.progress(r.Name(), "running")
	c.logger.Debug("running check", "check", r.Name(), "paths", len(paths), "fix", fix)

	result := r.Run(ctx, paths, fix)
	if result == nil {
		result = issue.NewResult(r.Name())
	}

	switch {
	case result.ErrorCount() > 0:
		c.progress(r.Name(), "failed")
	case result.Clean():
		c.progress(r.Name(), "passed")
	default:
		c.progress(r.Name(), "warned")
	}
	return result
}

func (c *Checker) progress(checkName, status string) {
	if c.opts.ProgressCallback != nil {
		c.opts.ProgressCallback(checkName, status)
	}
}
