// Package checks provides the runner interface and the ordered registry of Python checks
package checks

import (
	"context"

	"github.com/mrz1836/go-pycheck/internal/issue"
)

// CheckMetadata describes a runner for `pycheck tool --describe`
type CheckMetadata struct {
	// Name is the checks-run name, e.g. ruff-format
	Name string `json:"name"`

	// Kind is the user-facing check kind: format, lint, types or stubs
	Kind string `json:"kind"`

	// Description explains what the check does
	Description string `json:"description"`

	// Tool is the external executable, empty for in-process checks
	Tool string `json:"tool,omitempty"`
}

// Runner produces the issues for one check kind.
// Run never fails: a missing tool, a timeout or unreadable output is reported
// through the returned result, which always lists Name() in ChecksRun.
type Runner interface {
	// Name returns the checks-run name
	Name() string

	// Kind returns the check kind the runner implements
	Kind() string

	// Metadata returns a description of the runner
	Metadata() CheckMetadata

	// Run checks the given files and directories, applying fixes when fix is set
	Run(ctx context.Context, paths []string, fix bool) *issue.CheckResult
}
