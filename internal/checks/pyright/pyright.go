// Package pyright provides the type-check runner backed by the pyright executable
package pyright

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

// Runner runs `pyright --outputjson`
type Runner struct {
	config *config.Config
	tool   tools.Tool
	logger *slog.Logger
}

// NewRunner creates a type-check runner
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: cfg,
		tool:   tools.MustGet(tools.Pyright),
		logger: logger,
	}
}

// Name returns the checks-run name
func (r *Runner) Name() string {
	return string(issue.SourceType)
}

// Kind returns the check kind
func (r *Runner) Kind() string {
	return config.CheckTypes
}

// Metadata describes the runner
func (r *Runner) Metadata() checks.CheckMetadata {
	return checks.CheckMetadata{
		Name:        r.Name(),
		Kind:        r.Kind(),
		Description: "Type check with pyright",
		Tool:        r.tool.Name,
	}
}

// Run type-checks paths. pyright has no fix mode, so fix is ignored.
func (r *Runner) Run(ctx context.Context, paths []string, _ bool) *issue.CheckResult {
	result := issue.NewResult(r.Name())

	args := append([]string{"--outputjson"}, paths...)
	out, err := tools.Exec(ctx, tools.Command{
		Tool:    r.tool,
		Binary:  r.config.Tools.PyrightPath,
		Args:    args,
		Timeout: r.config.Tools.Timeout,
	}, r.logger)
	if err != nil {
		result.Issues = append(result.Issues, tools.FailureIssue(err, issue.SourceType))
		return result
	}

	issues, parseErr := ParseOutput(out.Stdout)
	if parseErr != nil {
		r.logger.Debug("discarding unparseable pyright output", "error", parseErr)
	}
	result.Issues = issues
	return result
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type report struct {
	GeneralDiagnostics []struct {
		File     string `json:"file"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Rule     string `json:"rule"`
		Range    struct {
			Start position `json:"start"`
			End   position `json:"end"`
		} `json:"range"`
	} `json:"generalDiagnostics"`
}

// ParseOutput converts pyright's JSON report into issues. Positions in the report
// are zero-based and become one-based. On malformed input it returns no issues
// along with the decode error.
func ParseOutput(output string) ([]issue.Issue, error) {
	if strings.TrimSpace(output) == "" {
		return nil, nil
	}

	var rep report
	if err := json.Unmarshal([]byte(output), &rep); err != nil {
		return nil, err
	}

	issues := make([]issue.Issue, 0, len(rep.GeneralDiagnostics))
	for _, d := range rep.GeneralDiagnostics {
		code := d.Rule
		if code == "" {
			code = "pyright"
		}
		issues = append(issues, issue.Issue{
			File:      d.File,
			Line:      d.Range.Start.Line + 1,
			Column:    d.Range.Start.Character + 1,
			Code:      code,
			Message:   d.Message,
			Severity:  MapSeverity(d.Severity),
			Source:    issue.SourceType,
			EndLine:   issue.IntPtr(d.Range.End.Line + 1),
			EndColumn: issue.IntPtr(d.Range.End.Character + 1),
		})
	}
	return issues, nil
}

// MapSeverity maps pyright's vocabulary onto Severity; anything unknown is an error
func MapSeverity(s string) issue.Severity {
	switch s {
	case "warning":
		return issue.SeverityWarning
	case "information":
		return issue.SeverityInfo
	default:
		return issue.SeverityError
	}
}
