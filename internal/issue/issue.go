// Package issue provides the canonical finding model shared by every check
package issue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the urgency of an issue. Lower values are more urgent.
type Severity int

const (
	// SeverityError is a finding that fails the check
	SeverityError Severity = iota
	// SeverityWarning is a finding that is reported but tolerated
	SeverityWarning
	// SeverityInfo is an informational notice
	SeverityInfo
)

// String returns the lowercase severity name
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Rank returns the ordering used by level filtering.
// Values outside the enum rank as errors so they are never hidden.
func (s Severity) Rank() int {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return int(s)
	default:
		return int(SeverityError)
	}
}

// MarshalJSON encodes the severity as its name
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParseSeverity(name)
	if !ok {
		return fmt.Errorf("unknown severity %q", name)
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name into a Severity
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityError, false
	}
}

// Source identifies the check that produced an issue
type Source string

// Known sources
const (
	SourceFormat  Source = "ruff-format"
	SourceLint    Source = "ruff-lint"
	SourceType    Source = "pyright"
	SourceStub    Source = "stub-check"
	SourceControl Source = "python-check"
)

// Sentinel codes for synthetic issues
const (
	CodeNonPython    = "NON-PYTHON"
	CodeToolNotFound = "TOOL-NOT-FOUND"
	CodeToolTimeout  = "TOOL-TIMEOUT"
	CodeFormat       = "FORMAT"
	CodeStub         = "STUB"
	CodeScratchFile  = "SCRATCH-FILE"
)

// Issue is one finding from any checker
type Issue struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Source     Source   `json:"source"`
	Suggestion string   `json:"suggestion,omitempty"`
	EndLine    *int     `json:"-"`
	EndColumn  *int     `json:"-"`
}

// Notice creates a file-less issue such as a skipped-input or missing-tool report
func Notice(code, message string, severity Severity, source Source) Issue {
	return Issue{
		Line:     0,
		Column:   1,
		Code:     code,
		Message:  message,
		Severity: severity,
		Source:   source,
	}
}

// Location formats the issue position as file:line:column
func (i Issue) Location() string {
	return fmt.Sprintf("%s:%d:%d", i.File, i.Line, i.Column)
}

// Short formats the issue as a one-line digest entry
func (i Issue) Short() string {
	return fmt.Sprintf("%s: [%s] %s", i.Location(), i.Code, i.Message)
}

// IntPtr returns a pointer to v, for optional range fields
func IntPtr(v int) *int {
	return &v
}
