// Package tool exposes the checks as the python_check agent tool
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrz1836/go-pycheck/internal/config"
	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/runner"
)

// Module identity reported by Metadata
const (
	ModuleName    = "tool-python-check"
	ModuleVersion = "0.1.0"
	ToolName      = "python_check"
)

const description = `Check Python code for quality issues.

Runs ruff (formatting and linting), pyright (type checking), and stub detection
on Python files or code content.

Input options:
- paths: List of file paths or directories to check
- content: Python code as a string to check
- fix: If true, auto-fix issues where possible (only works with paths)
- checks: Subset of format, lint, types, stubs to run (default: all)

Examples:
- Check a file: {"paths": ["src/main.py"]}
- Check a directory: {"paths": ["src/"]}
- Check multiple paths: {"paths": ["src/", "tests/test_main.py"]}
- Check code string: {"content": "def foo():\n    pass"}
- Auto-fix issues: {"paths": ["src/"], "fix": true}

Returns:
- success: True if no errors (warnings are OK)
- clean: True if no issues at all
- summary: Human-readable summary
- issues: List of issues with file, line, code, message, severity`

// Request is one tool invocation. Paths and Content are mutually exclusive;
// when both are empty the current directory is checked.
type Request struct {
	Paths   []string `json:"paths,omitempty" validate:"omitempty,excluded_with=Content,dive,required"`
	Content string   `json:"content,omitempty"`
	Fix     bool     `json:"fix,omitempty"`
	Checks  []string `json:"checks,omitempty" validate:"omitempty,dive,oneof=format lint types stubs"`
}

// Issue is the serialized form of one finding
type Issue struct {
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Column     int     `json:"column"`
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Severity   string  `json:"severity"`
	Source     string  `json:"source"`
	Suggestion *string `json:"suggestion"`
}

// Response is the tool result
type Response struct {
	Success      bool     `json:"success"`
	Clean        bool     `json:"clean"`
	Summary      string   `json:"summary"`
	FilesChecked int      `json:"files_checked"`
	ChecksRun    []string `json:"checks_run"`
	ErrorCount   int      `json:"error_count"`
	WarningCount int      `json:"warning_count"`
	Issues       []Issue  `json:"issues"`
}

// NewResponse converts a check result into the tool response
func NewResponse(result *issue.CheckResult) *Response {
	resp := &Response{
		Success:      result.Success(),
		Clean:        result.Clean(),
		Summary:      result.Summary(),
		FilesChecked: result.FilesChecked,
		ChecksRun:    append([]string{}, result.ChecksRun...),
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		Issues:       make([]Issue, 0, len(result.Issues)),
	}
	for _, i := range result.Issues {
		var suggestion *string
		if i.Suggestion != "" {
			s := i.Suggestion
			suggestion = &s
		}
		resp.Issues = append(resp.Issues, Issue{
			File:       i.File,
			Line:       i.Line,
			Column:     i.Column,
			Code:       i.Code,
			Message:    i.Message,
			Severity:   i.Severity.String(),
			Source:     string(i.Source),
			Suggestion: suggestion,
		})
	}
	return resp
}

// ExitCode mirrors issue.CheckResult.ExitCode for a serialized response
func (r *Response) ExitCode() int {
	switch {
	case r.ErrorCount > 0:
		return 2
	case r.WarningCount > 0:
		return 1
	default:
		return 0
	}
}

// Metadata describes the mounted tool
type Metadata struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Provides []string `json:"provides"`
}

// Tool runs checks on request
type Tool struct {
	config   *config.Config
	parallel bool
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates the tool. Each request's check list is applied on top of cfg.
func New(cfg *config.Config, parallel bool, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		config:   cfg,
		parallel: parallel,
		logger:   logger,
		validate: validator.New(),
	}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return ToolName
}

// Description returns the agent-facing usage text
func (t *Tool) Description() string {
	return description
}

// InputSchema returns the JSON schema of Request
func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "List of file paths or directories to check",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Python code as a string to check (alternative to paths)",
			},
			"fix": map[string]any{
				"type":        "boolean",
				"description": "Auto-fix issues where possible",
				"default":     false,
			},
			"checks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": append([]string{}, config.CheckKinds...),
				},
				"description": "Specific checks to run (default: all)",
			},
		},
	}
}

// Metadata returns the tool's identity
func (t *Tool) Metadata() Metadata {
	return Metadata{Name: ModuleName, Version: ModuleVersion, Provides: []string{ToolName}}
}

// ParseRequest decodes and validates a JSON request
func (t *Tool) ParseRequest(data []byte) (Request, error) {
	var req Request
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return Request{}, fmt.Errorf("%w: %w", prerrors.ErrInvalidRequest, err)
		}
	}
	if err := t.Validate(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks a request against its constraints
func (t *Tool) Validate(req Request) error {
	if err := t.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", prerrors.ErrInvalidRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", prerrors.ErrInvalidRequest, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "excluded_with":
		return "paths and content are mutually exclusive"
	case "oneof":
		return fmt.Sprintf("unknown check %q (want one of: %s)", fe.Value(), strings.Join(config.CheckKinds, ", "))
	case "required":
		return "paths must not contain empty entries"
	default:
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}

// Execute validates req and runs the requested checks
func (t *Tool) Execute(ctx context.Context, req Request) (*Response, error) {
	if err := t.Validate(req); err != nil {
		return nil, err
	}

	cfg := t.config.WithChecks(req.Checks)
	checker := runner.New(cfg, runner.Options{Parallel: t.parallel, Logger: t.logger})

	var result *issue.CheckResult
	switch {
	case req.Content != "":
		result = checker.CheckContent(ctx, req.Content, "")
	case len(req.Paths) > 0:
		result = checker.CheckFiles(ctx, req.Paths, req.Fix)
	default:
		result = checker.CheckFiles(ctx, []string{"."}, req.Fix)
	}

	t.logger.Debug("python_check finished", "summary", result.Summary(), "checks", result.ChecksRun)
	return NewResponse(result), nil
}
