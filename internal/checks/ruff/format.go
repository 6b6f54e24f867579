// Package ruff provides the format and lint runners backed by the ruff executable
package ruff

import (
	"bufio"
	"context"
	"log/slog"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/mrz1836/go-pycheck/internal/checks"
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/tools"
)

const (
	devNull          = "/dev/null"
	formatMessage    = "File would be reformatted"
	formatSuggestion = "Run with --fix to auto-format"
)

// FormatRunner runs `ruff format`
type FormatRunner struct {
	config *config.Config
	tool   tools.Tool
	logger *slog.Logger
}

// NewFormatRunner creates a format runner
func NewFormatRunner(cfg *config.Config, logger *slog.Logger) *FormatRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormatRunner{
		config: cfg,
		tool:   tools.MustGet(tools.Ruff),
		logger: logger,
	}
}

// Name returns the checks-run name
func (r *FormatRunner) Name() string {
	return string(issue.SourceFormat)
}

// Kind returns the check kind
func (r *FormatRunner) Kind() string {
	return config.CheckFormat
}

// Metadata describes the runner
func (r *FormatRunner) Metadata() checks.CheckMetadata {
	return checks.CheckMetadata{
		Name:        r.Name(),
		Kind:        r.Kind(),
		Description: "Check formatting with ruff format",
		Tool:        r.tool.Name,
	}
}

// Run checks formatting, or rewrites files in place when fix is set.
// Fix mode reports nothing for files it reformatted.
func (r *FormatRunner) Run(ctx context.Context, paths []string, fix bool) *issue.CheckResult {
	result := issue.NewResult(r.Name())

	args := []string{"format"}
	if !fix {
		args = append(args, "--check", "--diff")
	}
	args = append(args, excludeArgs(r.config)...)
	args = append(args, paths...)

	out, err := tools.Exec(ctx, command(r.config, r.tool, args), r.logger)
	if err != nil {
		result.Issues = append(result.Issues, tools.FailureIssue(err, issue.SourceFormat))
		return result
	}
	if fix {
		return result
	}

	result.Issues = ParseFormatDiff(out.Stdout)
	return result
}

// ParseFormatDiff turns `ruff format --check --diff` output into one warning per
// file that would be reformatted. Unparseable output yields no issues.
func ParseFormatDiff(output string) []issue.Issue {
	if strings.TrimSpace(output) == "" {
		return nil
	}

	names := diffFileNames(output)
	if len(names) == 0 {
		names = scanDiffHeaders(output)
	}

	var issues []issue.Issue
	seen := make(map[string]bool)
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		issues = append(issues, issue.Issue{
			File:       name,
			Line:       1,
			Column:     1,
			Code:       issue.CodeFormat,
			Message:    formatMessage,
			Severity:   issue.SeverityWarning,
			Source:     issue.SourceFormat,
			Suggestion: formatSuggestion,
		})
	}
	return issues
}

// diffFileNames lists the files of a unified diff, nil when the parser rejects it
func diffFileNames(output string) []string {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(output)).ReadAllFiles()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		names = append(names, pickName(stripPrefix(fd.OrigName, "a/"), stripPrefix(fd.NewName, "b/")))
	}
	return names
}

// pickName prefers the original name unless the file is new
func pickName(orig, updated string) string {
	if orig != "" && orig != devNull {
		return orig
	}
	if updated != devNull {
		return updated
	}
	return ""
}

// scanDiffHeaders pairs `--- ` and `+++ ` header lines when the diff parser rejects the text
func scanDiffHeaders(output string) []string {
	var names []string
	current, inHeader := "", false
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "--- "):
			current, inHeader = stripPrefix(headerName(line[4:]), "a/"), true
		case strings.HasPrefix(line, "+++ ") && inHeader:
			if name := pickName(current, stripPrefix(headerName(line[4:]), "b/")); name != "" {
				names = append(names, name)
			}
			current, inHeader = "", false
		}
	}
	return names
}

// headerName drops an optional tab-separated timestamp
func headerName(s string) string {
	if idx := strings.IndexByte(s, '\t'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func stripPrefix(name, prefix string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), prefix)
}
