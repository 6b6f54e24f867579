// Package stub provides the in-process scanner for placeholder code such as
// TODO comments and NotImplementedError bodies
package stub

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mrz1836/go-pycheck/internal/checks"
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/files"
	"github.com/mrz1836/go-pycheck/internal/issue"
)

const (
	suggestion = "Remove placeholder or implement functionality"

	// messageBudget is the number of runes of the matched line kept in the message
	messageBudget = 60
)

// Pattern is a compiled stub rule
type Pattern struct {
	re          *regexp.Regexp
	Description string
}

// Runner scans Python files line by line for stub patterns
type Runner struct {
	patterns []Pattern
	walker   *files.Walker
	logger   *slog.Logger
}

// NewRunner compiles the configured stub patterns case-insensitively.
// Invalid patterns are logged and skipped.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		patterns: Compile(cfg.StubPatterns, logger),
		walker: &files.Walker{
			Include:          cfg.IncludePatterns,
			Exclude:          cfg.ExcludePatterns,
			RespectGitignore: cfg.RespectGitignore,
			Logger:           logger,
		},
		logger: logger,
	}
}

// Compile turns stub rules into matchers, dropping the ones that do not compile
func Compile(rules []config.StubPattern, logger *slog.Logger) []Pattern {
	patterns := make([]Pattern, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			logger.Warn("skipping invalid stub pattern", "pattern", rule.Pattern, "error", err)
			continue
		}
		patterns = append(patterns, Pattern{re: re, Description: rule.Description})
	}
	return patterns
}

// Name returns the checks-run name
func (r *Runner) Name() string {
	return string(issue.SourceStub)
}

// Kind returns the check kind
func (r *Runner) Kind() string {
	return config.CheckStubs
}

// Metadata describes the runner
func (r *Runner) Metadata() checks.CheckMetadata {
	return checks.CheckMetadata{
		Name:        r.Name(),
		Kind:        r.Kind(),
		Description: "Find TODOs, stubs and placeholder code",
	}
}

// Run scans every eligible file under paths. There is nothing to fix, so fix is ignored.
func (r *Runner) Run(ctx context.Context, paths []string, _ bool) *issue.CheckResult {
	result := issue.NewResult(r.Name())

	for _, path := range r.walker.Collect(paths) {
		if ctx.Err() != nil {
			r.logger.Debug("stub scan interrupted", "error", ctx.Err())
			break
		}

		content, err := os.ReadFile(path) //nolint:gosec // path comes from the walked input set
		if err != nil {
			r.logger.Debug("skipping unreadable file", "path", path, "error", err)
			continue
		}
		result.Issues = append(result.Issues, r.Scan(path, string(content))...)
	}
	return result
}

// Scan returns the stub issues in content, reported against path
func (r *Runner) Scan(path, content string) []issue.Issue {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	var issues []issue.Issue
	for idx, line := range lines {
		for _, p := range r.patterns {
			if !p.re.MatchString(line) {
				continue
			}
			if IsLegitimate(path, idx, lines) {
				continue
			}
			issues = append(issues, issue.Issue{
				File:       path,
				Line:       idx + 1,
				Column:     1,
				Code:       issue.CodeStub,
				Message:    p.Description + ": " + truncateRunes(strings.TrimSpace(line), messageBudget),
				Severity:   issue.SeverityWarning,
				Source:     issue.SourceStub,
				Suggestion: suggestion,
			})
		}
	}
	return issues
}

var (
	abstractMarker  = regexp.MustCompile(`@(abc\.)?abstractmethod\b`)       //nolint:gochecknoglobals // compiled once
	cliDecorator    = regexp.MustCompile(`@(click|cli)\.(group|command)\b`) //nolint:gochecknoglobals // compiled once
	classDefinition = regexp.MustCompile(`^\s*class\s+(\w+)`)               //nolint:gochecknoglobals // compiled once
)

// IsLegitimate reports whether the matched line at index idx is an accepted
// placeholder. Rules are checked in order and the first match wins.
func IsLegitimate(path string, idx int, lines []string) bool {
	line := lines[idx]
	trimmed := strings.TrimSpace(line)

	// Test code
	if strings.Contains(strings.ToLower(path), "test") {
		return true
	}

	// Empty package initializer
	if filepath.Base(path) == "__init__.py" && (trimmed == "" || trimmed == "pass") {
		return true
	}

	// Abstract method body
	if strings.Contains(line, "NotImplementedError") && anyPreceding(lines, idx, 3, abstractMarker.MatchString) {
		return true
	}

	// Empty exception subclass
	if trimmed == "pass" && anyPreceding(lines, idx, 5, isExceptionClass) {
		return true
	}

	// click command or group body
	if strings.Contains(line, "pass") && anyPreceding(lines, idx, 3, cliDecorator.MatchString) {
		return true
	}

	// Protocol body
	if trimmed == "pass" || trimmed == "..." {
		head := lines[:min(len(lines), 50)]
		if strings.Contains(strings.Join(head, "\n"), "Protocol") {
			return true
		}
	}

	return false
}

// anyPreceding applies match to up to n lines immediately above idx
func anyPreceding(lines []string, idx, n int, match func(string) bool) bool {
	for i := max(0, idx-n); i < idx; i++ {
		if match(lines[i]) {
			return true
		}
	}
	return false
}

func isExceptionClass(line string) bool {
	m := classDefinition.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return strings.Contains(m[1], "Error") || strings.Contains(m[1], "Exception")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
