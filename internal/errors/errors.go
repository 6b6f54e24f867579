// Package errors defines common errors for the pycheck system
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	// ErrToolNotFound is returned when a backing executable cannot be located or started
	ErrToolNotFound = errors.New("required tool not found")

	// ErrToolTimeout is returned when a backing executable does not finish in time
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrUnknownTool is returned when a tool name is not in the registry
	ErrUnknownTool = errors.New("unknown tool")

	// ErrConfigNotFound is returned when no pyproject.toml exists in any parent directory
	ErrConfigNotFound = errors.New("pyproject.toml not found in any parent directory")

	// ErrConfigSectionMissing is returned when pyproject.toml has no [tool.pycheck] table
	ErrConfigSectionMissing = errors.New("pyproject.toml has no [tool.pycheck] section")

	// ErrInvalidRequest is returned when a tool request fails validation
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidPayload is returned when a hook payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid hook payload")

	// ErrRepositoryRootNotFound is returned when git repository root cannot be determined
	ErrRepositoryRootNotFound = errors.New("unable to determine repository root")

	// ErrNotGitRepository is returned when a git operation runs outside a repository
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrPathNotFound is returned when a path given on the command line does not exist
	ErrPathNotFound = errors.New("path does not exist")

	// ErrInvalidArgument is returned when command line arguments conflict or are out of range
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNilContext is returned when a nil context is passed to a blocking operation
	ErrNilContext = errors.New("context cannot be nil")
)

// CheckError represents an enhanced error with context and suggestions
type CheckError struct {
	// Base error
	Err error

	// Human-readable message explaining what went wrong
	Message string

	// Actionable suggestion for how to fix the issue
	Suggestion string

	// Command that failed (if applicable)
	Command string

	// Raw output from the failed command
	Output string
}

// Error implements the error interface
func (e *CheckError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the error unwrapping interface
func (e *CheckError) Unwrap() error {
	return e.Err
}

// Is implements the error checking interface
func (e *CheckError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCheckError creates a new CheckError
func NewCheckError(err error, message, suggestion string) *CheckError {
	return &CheckError{
		Err:        err,
		Message:    message,
		Suggestion: suggestion,
	}
}

// NewToolNotFoundError creates an error for a missing tool with an install hint
func NewToolNotFoundError(tool, installHint string) *CheckError {
	return &CheckError{
		Err:        ErrToolNotFound,
		Message:    fmt.Sprintf("%s not found. Install with: %s", tool, installHint),
		Suggestion: installHint,
		Command:    tool,
	}
}

// NewToolTimeoutError creates an error for a tool that exceeded its time budget
func NewToolTimeoutError(tool, output string, timeout time.Duration) *CheckError {
	return &CheckError{
		Err:        ErrToolTimeout,
		Message:    fmt.Sprintf("%s timed out after %s", tool, timeout),
		Suggestion: "Check fewer paths or raise timeout_seconds under [tool.pycheck.tools] in pyproject.toml",
		Command:    tool,
		Output:     output,
	}
}
