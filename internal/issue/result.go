package issue

import (
	"fmt"
	"strings"
)

// CheckResult is the aggregate output of one check run
type CheckResult struct {
	Issues       []Issue
	FilesChecked int
	ChecksRun    []string
}

// NewResult creates an empty result that names the checks which ran
func NewResult(checksRun ...string) *CheckResult {
	return &CheckResult{ChecksRun: unionNames(nil, checksRun)}
}

// ErrorCount returns the number of error-severity issues
func (r *CheckResult) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-severity issues
func (r *CheckResult) WarningCount() int {
	return r.count(SeverityWarning)
}

// InfoCount returns the number of info-severity issues
func (r *CheckResult) InfoCount() int {
	return r.count(SeverityInfo)
}

func (r *CheckResult) count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// Clean reports whether there are no issues at all
func (r *CheckResult) Clean() bool {
	return len(r.Issues) == 0
}

// Success reports whether there are no errors; warnings are tolerated
func (r *CheckResult) Success() bool {
	return r.ErrorCount() == 0
}

// ExitCode returns 0 when clean, 1 for warnings only and 2 when any error is present
func (r *CheckResult) ExitCode() int {
	if r.ErrorCount() > 0 {
		return 2
	}
	if r.WarningCount() > 0 {
		return 1
	}
	return 0
}

// Summary returns a human-readable one-line summary
func (r *CheckResult) Summary() string {
	if r.Clean() {
		return fmt.Sprintf("All checks passed (%d files)", r.FilesChecked)
	}

	var parts []string
	if n := r.ErrorCount(); n > 0 {
		parts = append(parts, Plural(n, "error"))
	}
	if n := r.WarningCount(); n > 0 {
		parts = append(parts, Plural(n, "warning"))
	}
	if n := r.InfoCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d info", n))
	}

	return fmt.Sprintf("Found %s in %d files", strings.Join(parts, ", "), r.FilesChecked)
}

// Merge combines two results without modifying either.
// Issues are concatenated, FilesChecked takes the maximum and ChecksRun is a union.
func (r *CheckResult) Merge(other *CheckResult) *CheckResult {
	if other == nil {
		return r.Clone()
	}

	merged := &CheckResult{
		Issues:       make([]Issue, 0, len(r.Issues)+len(other.Issues)),
		FilesChecked: max(r.FilesChecked, other.FilesChecked),
		ChecksRun:    unionNames(r.ChecksRun, other.ChecksRun),
	}
	merged.Issues = append(merged.Issues, r.Issues...)
	merged.Issues = append(merged.Issues, other.Issues...)
	return merged
}

// Clone returns a copy that shares no slices with r
func (r *CheckResult) Clone() *CheckResult {
	return &CheckResult{
		Issues:       append([]Issue(nil), r.Issues...),
		FilesChecked: r.FilesChecked,
		ChecksRun:    append([]string(nil), r.ChecksRun...),
	}
}

// Filter returns a copy holding only issues at or above the minimum level
func (r *CheckResult) Filter(minLevel Severity) *CheckResult {
	filtered := r.Clone()
	filtered.Issues = FilterByLevel(r.Issues, minLevel)
	return filtered
}

// Prepend inserts issues ahead of the existing ones
func (r *CheckResult) Prepend(issues ...Issue) {
	r.Issues = append(append([]Issue(nil), issues...), r.Issues...)
}

// RewriteFile renames issues reported under from to the caller-visible name to.
// This is the only mutation applied to issues after a runner creates them.
func (r *CheckResult) RewriteFile(to string, from ...string) {
	for idx := range r.Issues {
		for _, f := range from {
			if f != "" && r.Issues[idx].File == f {
				r.Issues[idx].File = to
				break
			}
		}
	}
}

// Plural formats a count with a naive English plural
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func unionNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, names := range [][]string{a, b} {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
