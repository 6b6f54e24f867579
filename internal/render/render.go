// Package render turns check results into short user feedback and the fuller
// digest handed to an agent
package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/state"
)

// Verbosity controls how much of a dirty result the user sees
type Verbosity string

// Supported verbosities
const (
	VerbosityMinimal  Verbosity = "minimal"
	VerbosityNormal   Verbosity = "normal"
	VerbosityDetailed Verbosity = "detailed"
)

// ParseVerbosity maps a name onto a Verbosity; unknown names are normal
func ParseVerbosity(name string) Verbosity {
	switch v := Verbosity(strings.ToLower(strings.TrimSpace(name))); v {
	case VerbosityMinimal, VerbosityNormal, VerbosityDetailed:
		return v
	default:
		return VerbosityNormal
	}
}

// Icons shown ahead of every message
const (
	IconClean  = "✓"
	IconMinor  = "◐"
	IconErrors = "●"
	IconStubs  = "◑"
)

// Defaults for the Renderer caps
const (
	DefaultDetailCap     = 5
	DefaultMessageBudget = 60
	DefaultDigestCap     = 10
)

// Categories buckets issues by what the user has to do about them
type Categories struct {
	TypeErrors  []issue.Issue
	LintErrors  []issue.Issue
	StyleIssues []issue.Issue
	Stubs       []issue.Issue
}

// Categorize places every issue in exactly one bucket
func Categorize(issues []issue.Issue) Categories {
	var c Categories
	for _, i := range issues {
		switch i.Source {
		case issue.SourceType:
			c.TypeErrors = append(c.TypeErrors, i)
		case issue.SourceStub:
			c.Stubs = append(c.Stubs, i)
		case issue.SourceFormat:
			c.StyleIssues = append(c.StyleIssues, i)
		case issue.SourceLint, issue.SourceControl:
			c.addBySeverity(i)
		default:
			c.addBySeverity(i)
		}
	}
	return c
}

func (c *Categories) addBySeverity(i issue.Issue) {
	if i.Severity == issue.SeverityError {
		c.LintErrors = append(c.LintErrors, i)
		return
	}
	c.StyleIssues = append(c.StyleIssues, i)
}

// Summary joins the non-empty bucket counts, e.g. "2 type errors, 1 style issue"
func (c Categories) Summary() string {
	var parts []string
	if n := len(c.TypeErrors); n > 0 {
		parts = append(parts, issue.Plural(n, "type error"))
	}
	if n := len(c.LintErrors); n > 0 {
		parts = append(parts, issue.Plural(n, "lint error"))
	}
	if n := len(c.StyleIssues); n > 0 {
		parts = append(parts, issue.Plural(n, "style issue"))
	}
	if n := len(c.Stubs); n > 0 {
		parts = append(parts, issue.Plural(n, "stub"))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}

// Icon picks the glyph for a result: clean, stubs only, errors, or minor
func Icon(result *issue.CheckResult, c Categories) string {
	switch {
	case result.Clean():
		return IconClean
	case len(c.Stubs) > 0 && len(c.TypeErrors) == 0 && len(c.LintErrors) == 0:
		return IconStubs
	case result.ErrorCount() > 0:
		return IconErrors
	default:
		return IconMinor
	}
}

// Level returns the message level for a result
func Level(result *issue.CheckResult) issue.Severity {
	switch {
	case result.Clean():
		return issue.SeverityInfo
	case result.ErrorCount() > 0:
		return issue.SeverityError
	default:
		return issue.SeverityWarning
	}
}

// Feedback is the user-facing message for one check
type Feedback struct {
	Message string
	Level   issue.Severity
}

// Renderer formats results at a fixed verbosity
type Renderer struct {
	Verbosity     Verbosity
	DetailCap     int
	MessageBudget int
	DigestCap     int
}

// New creates a Renderer with the default caps
func New(verbosity string) *Renderer {
	return &Renderer{
		Verbosity:     ParseVerbosity(verbosity),
		DetailCap:     DefaultDetailCap,
		MessageBudget: DefaultMessageBudget,
		DigestCap:     DefaultDigestCap,
	}
}

// Suppressed reports whether a repeat check with unchanged counts should stay quiet.
// Only counts are compared, so different issues with equal counts are still suppressed.
func (r *Renderer) Suppressed(result *issue.CheckResult, snap state.Snapshot) bool {
	return !result.Clean() &&
		snap.Repeat() &&
		result.ErrorCount() == snap.PrevErrors &&
		result.WarningCount() == snap.PrevWarnings &&
		r.Verbosity != VerbosityDetailed
}

// Render builds the user message for result. It returns false when the message
// is suppressed as a repeat of the previous one.
func (r *Renderer) Render(result *issue.CheckResult, displayPath string, snap state.Snapshot) (Feedback, bool) {
	if r.Suppressed(result, snap) {
		return Feedback{}, false
	}

	cats := Categorize(result.Issues)
	icon := Icon(result, cats)
	level := Level(result)

	if result.Clean() {
		if snap.Repeat() && snap.PrevTotal() > 0 {
			return Feedback{
				Message: fmt.Sprintf("%s %s: clean (was %d issues)", icon, displayPath, snap.PrevTotal()),
				Level:   level,
			}, true
		}
		return Feedback{Message: fmt.Sprintf("%s %s: clean", icon, displayPath), Level: level}, true
	}

	if r.Verbosity == VerbosityMinimal {
		return Feedback{
			Message: fmt.Sprintf("%s %s: %s", icon, displayPath, issue.Plural(len(result.Issues), "issue")),
			Level:   level,
		}, true
	}

	message := fmt.Sprintf("%s %s: %s", icon, displayPath, cats.Summary())
	if snap.Repeat() {
		current := result.ErrorCount() + result.WarningCount()
		if current < snap.PrevTotal() {
			message += fmt.Sprintf(" (was %d)", snap.PrevTotal())
		}
	}
	return Feedback{Message: message, Level: level}, true
}

// ShouldShowDetails reports whether the detail block accompanies the message
func (r *Renderer) ShouldShowDetails(result *issue.CheckResult) bool {
	switch r.Verbosity {
	case VerbosityDetailed:
		return true
	case VerbosityMinimal:
		return false
	case VerbosityNormal:
		return result.ErrorCount() > 0
	default:
		return result.ErrorCount() > 0
	}
}

// Details lists issues errors first, then by line, up to the detail cap
func (r *Renderer) Details(result *issue.CheckResult) string {
	sorted := slices.Clone(result.Issues)
	slices.SortStableFunc(sorted, func(a, b issue.Issue) int {
		return cmp.Or(
			cmp.Compare(errorRank(a), errorRank(b)),
			cmp.Compare(a.Line, b.Line),
		)
	})

	limit := r.DetailCap
	if limit <= 0 {
		limit = DefaultDetailCap
	}

	lines := make([]string, 0, min(len(sorted), limit)+1)
	for _, i := range sorted[:min(len(sorted), limit)] {
		label := "warn "
		if i.Severity == issue.SeverityError {
			label = "error"
		}
		lines = append(lines, fmt.Sprintf("│ %s  line %-4d  %s", label, i.Line, r.truncate(i.Message)))
	}
	if extra := len(sorted) - limit; extra > 0 {
		lines = append(lines, fmt.Sprintf("│ ... and %d more", extra))
	}
	return strings.Join(lines, "\n")
}

// Digest renders the agent-facing issue list. It ignores verbosity.
func (r *Renderer) Digest(result *issue.CheckResult, displayPath string) string {
	limit := r.DigestCap
	if limit <= 0 {
		limit = DefaultDigestCap
	}

	lines := []string{fmt.Sprintf("Python check found issues in %s:", displayPath)}
	for _, i := range result.Issues[:min(len(result.Issues), limit)] {
		lines = append(lines, "- "+i.Short())
	}
	if extra := len(result.Issues) - limit; extra > 0 {
		lines = append(lines, fmt.Sprintf("  ... and %d more issues", extra))
	}
	return strings.Join(lines, "\n")
}

// truncate shortens messages past the budget plus the ellipsis width
func (r *Renderer) truncate(msg string) string {
	budget := r.MessageBudget
	if budget <= 0 {
		budget = DefaultMessageBudget
	}
	runes := []rune(msg)
	if len(runes) <= budget+3 {
		return msg
	}
	return string(runes[:budget]) + "..."
}

func errorRank(i issue.Issue) int {
	if i.Severity == issue.SeverityError {
		return 0
	}
	return 1
}
