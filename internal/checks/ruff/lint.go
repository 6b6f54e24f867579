package ruff

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mrz1836/go-pycheck/internal/checks"
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/tools"
)

const fixAvailable = "Fix available"

// LintRunner runs `ruff check`
type LintRunner struct {
	config *config.Config
	tool   tools.Tool
	logger *slog.Logger
}

// NewLintRunner creates a lint runner
func NewLintRunner(cfg *config.Config, logger *slog.Logger) *LintRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LintRunner{
		config: cfg,
		tool:   tools.MustGet(tools.Ruff),
		logger: logger,
	}
}

// Name returns the checks-run name
func (r *LintRunner) Name() string {
	return string(issue.SourceLint)
}

// Kind returns the check kind
func (r *LintRunner) Kind() string {
	return config.CheckLint
}

// Metadata describes the runner
func (r *LintRunner) Metadata() checks.CheckMetadata {
	return checks.CheckMetadata{
		Name:        r.Name(),
		Kind:        r.Kind(),
		Description: "Lint with ruff check",
		Tool:        r.tool.Name,
	}
}

// Run lints paths, applying safe fixes when fix is set
func (r *LintRunner) Run(ctx context.Context, paths []string, fix bool) *issue.CheckResult {
	result := issue.NewResult(r.Name())

	args := []string{"check", "--output-format=json"}
	if fix {
		args = append(args, "--fix")
	}
	args = append(args, excludeArgs(r.config)...)
	args = append(args, paths...)

	out, err := tools.Exec(ctx, command(r.config, r.tool, args), r.logger)
	if err != nil {
		result.Issues = append(result.Issues, tools.FailureIssue(err, issue.SourceLint))
		return result
	}

	issues, parseErr := ParseLintJSON(out.Stdout)
	if parseErr != nil {
		r.logger.Debug("discarding unparseable ruff output", "error", parseErr)
	}
	result.Issues = issues
	return result
}

// lintRecord is one entry of `ruff check --output-format=json`
type lintRecord struct {
	Code        *string   `json:"code"`
	Message     string    `json:"message"`
	Filename    string    `json:"filename"`
	Location    *location `json:"location"`
	EndLocation *location `json:"end_location"`
	Fix         *struct {
		Message *string `json:"message"`
	} `json:"fix"`
}

type location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// ParseLintJSON converts ruff's JSON report into issues. On malformed input it
// returns no issues along with the decode error.
func ParseLintJSON(output string) ([]issue.Issue, error) {
	if strings.TrimSpace(output) == "" {
		return nil, nil
	}

	var records []lintRecord
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		return nil, err
	}

	issues := make([]issue.Issue, 0, len(records))
	for _, rec := range records {
		code := ""
		if rec.Code != nil {
			code = *rec.Code
		}

		i := issue.Issue{
			File:     rec.Filename,
			Code:     code,
			Message:  rec.Message,
			Severity: LintSeverity(code),
			Source:   issue.SourceLint,
		}
		if rec.Location != nil {
			i.Line = rec.Location.Row
			i.Column = rec.Location.Column
		}
		if rec.EndLocation != nil {
			i.EndLine = issue.IntPtr(rec.EndLocation.Row)
			i.EndColumn = issue.IntPtr(rec.EndLocation.Column)
		}
		if rec.Fix != nil {
			i.Suggestion = fixAvailable
			if rec.Fix.Message != nil && *rec.Fix.Message != "" {
				i.Suggestion = *rec.Fix.Message
			}
		}
		issues = append(issues, i)
	}
	return issues, nil
}

// LintSeverity classifies pycodestyle errors (E), pyflakes (F) and code-less
// syntax errors as errors; every other rule family is a warning
func LintSeverity(code string) issue.Severity {
	if code == "" || strings.HasPrefix(code, "E") || strings.HasPrefix(code, "F") {
		return issue.SeverityError
	}
	return issue.SeverityWarning
}
