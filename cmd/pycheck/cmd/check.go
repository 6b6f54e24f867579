package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-pycheck/internal/config"
	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
	"github.com/mrz1836/go-pycheck/internal/git"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/output"
	"github.com/mrz1836/go-pycheck/internal/runner"
)

// checkOptions are the flags of the root check command
type checkOptions struct {
	fix        bool
	format     string
	noFormat   bool
	noLint     bool
	noTypes    bool
	noStubs    bool
	onlyErrors bool
	staged     bool
}

func (o *checkOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.fix, "fix", false, "Auto-fix issues where possible")
	f.StringVar(&o.format, "format", output.FormatText, "Output format: "+strings.Join(output.Formats, ", "))
	f.BoolVar(&o.noFormat, "no-format", false, "Skip ruff format check")
	f.BoolVar(&o.noLint, "no-lint", false, "Skip ruff lint check")
	f.BoolVar(&o.noTypes, "no-types", false, "Skip pyright type check")
	f.BoolVar(&o.noStubs, "no-stubs", false, "Skip stub/TODO check")
	f.BoolVar(&o.onlyErrors, "only-errors", false, "Only report errors, not warnings")
	f.BoolVar(&o.staged, "staged", false, "Check the Python files staged for commit")
}

// overrides turns the skip flags into config overrides. Checks that are not
// skipped keep whatever the lower layers decided.
func (o *checkOptions) overrides() *config.Overrides {
	off := false
	ov := &config.Overrides{}
	if o.noFormat {
		ov.EnableRuffFormat = &off
	}
	if o.noLint {
		ov.EnableRuffLint = &off
	}
	if o.noTypes {
		ov.EnablePyright = &off
	}
	if o.noStubs {
		ov.EnableStubCheck = &off
	}
	return ov
}

func (cb *CommandBuilder) runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	if !slices.Contains(output.Formats, opts.format) {
		return fmt.Errorf("%w: --format must be one of %s, got %q",
			prerrors.ErrInvalidArgument, strings.Join(output.Formats, ", "), opts.format)
	}
	if opts.staged && len(args) > 0 {
		return fmt.Errorf("%w: --staged cannot be combined with paths", prerrors.ErrInvalidArgument)
	}

	ctx := cmd.Context()
	app := cb.app
	cfg := app.loadConfig(opts.overrides())

	paths := args
	if opts.staged {
		staged, err := stagedPaths(cmd)
		if err != nil {
			return err
		}
		if len(staged) == 0 {
			app.formatter().Warning("No staged Python files to check")
			return cb.report(issue.NewResult(), cfg, opts, false)
		}
		paths = staged
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", prerrors.ErrPathNotFound, p)
		}
	}

	checker := runner.New(cfg, runner.Options{
		Parallel: app.config.Parallel,
		Logger:   app.logger,
		ProgressCallback: func(name, status string) {
			app.logger.Debug("check progress", "check", name, "status", status)
		},
	})

	fix := opts.fix || cfg.AutoFix
	result := checker.CheckFiles(ctx, paths, fix)
	if opts.onlyErrors {
		result = result.Filter(issue.SeverityError)
	}
	return cb.report(result, cfg, opts, fix)
}

func (cb *CommandBuilder) report(result *issue.CheckResult, cfg *config.Config, opts *checkOptions, fixed bool) error {
	err := cb.app.formatter().Report(result, opts.format, output.ReportOptions{
		Fixed:         fixed,
		FailOnWarning: cfg.FailOnWarning,
	})
	if err != nil {
		return err
	}
	cb.app.exitCode = result.ExitCode()
	return nil
}

// stagedPaths lists the staged Python files of the repository around the working directory
func stagedPaths(cmd *cobra.Command) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}
	root, err := git.FindRepositoryRoot(cmd.Context(), cwd)
	if err != nil {
		return nil, err
	}
	return git.NewRepository(root).StagedPythonFiles(cmd.Context())
}
