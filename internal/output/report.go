package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/tool"
)

// Report formats
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatGitHub = "github"
)

// Formats lists the accepted --format values
var Formats = []string{FormatText, FormatJSON, FormatGitHub}

// ReportTitle is printed above text reports
const ReportTitle = "=== pycheck ==="

// ReportOptions controls report details that do not come from the result
type ReportOptions struct {
	// Fixed adds the re-run note when fixes were requested and issues remain
	Fixed bool
	// FailOnWarning promotes warning annotations to errors in github format
	FailOnWarning bool
}

// Report writes result to stdout in the given format
func (f *Formatter) Report(result *issue.CheckResult, format string, opts ReportOptions) error {
	switch format {
	case FormatJSON:
		return f.reportJSON(result)
	case FormatGitHub:
		f.reportGitHub(result, opts)
		return nil
	case FormatText, "":
		f.reportText(result, opts)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want one of: %s)", format, strings.Join(Formats, ", "))
	}
}

func (f *Formatter) reportJSON(result *issue.CheckResult) error {
	data, err := json.MarshalIndent(tool.NewResponse(result), "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode report: %w", err)
	}
	_, _ = fmt.Fprintln(f.out, string(data))
	return nil
}

func (f *Formatter) reportGitHub(result *issue.CheckResult, opts ReportOptions) {
	for _, i := range result.Issues {
		level := "warning"
		if i.Severity == issue.SeverityError || (opts.FailOnWarning && i.Severity == issue.SeverityWarning) {
			level = "error"
		}
		_, _ = fmt.Fprintf(f.out, "::%s file=%s,line=%d,col=%d::%s: %s\n",
			level, i.File, i.Line, i.Column, i.Code, escapeAnnotation(i.Message))
	}
	_, _ = fmt.Fprintln(f.out)
	_, _ = fmt.Fprintln(f.out, result.Summary())
}

// escapeAnnotation encodes the characters GitHub workflow commands reserve
func escapeAnnotation(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func (f *Formatter) reportText(result *issue.CheckResult, opts ReportOptions) {
	_, _ = fmt.Fprintf(f.out, "\n%s\n", ReportTitle)

	if result.Clean() {
		_, _ = fmt.Fprintf(f.out, "\n")
		f.print(f.out, color.FgGreen, result.Summary()+"\n")
	} else {
		for _, group := range groupByFile(result.Issues) {
			_, _ = fmt.Fprintf(f.out, "\n%s\n", group.file)
			for _, i := range group.issues {
				_, _ = fmt.Fprint(f.out, "  ")
				f.print(f.out, severityColor(i.Severity), fmt.Sprintf("%d:%d [%s]", i.Line, i.Column, marker(i.Severity)))
				_, _ = fmt.Fprintf(f.out, " %s: %s\n", i.Code, i.Message)
				if i.Suggestion != "" {
					_, _ = fmt.Fprintf(f.out, "         -> %s\n", i.Suggestion)
				}
			}
		}
		attr := color.FgYellow
		if !result.Success() {
			attr = color.FgRed
		}
		_, _ = fmt.Fprintln(f.out)
		f.print(f.out, attr, result.Summary()+"\n")
	}

	_, _ = fmt.Fprintf(f.out, "\nChecks run: %s\n", strings.Join(result.ChecksRun, ", "))

	if opts.Fixed && !result.Clean() {
		_, _ = fmt.Fprintf(f.out, "\nNote: Some issues were auto-fixed. Run again to verify.\n")
	}
}

type fileGroup struct {
	file   string
	issues []issue.Issue
}

// groupByFile groups issues by file name, files sorted and issues ordered by position
func groupByFile(issues []issue.Issue) []fileGroup {
	byFile := make(map[string][]issue.Issue)
	for _, i := range issues {
		byFile[i.File] = append(byFile[i.File], i)
	}

	groups := make([]fileGroup, 0, len(byFile))
	for file, list := range byFile {
		sort.SliceStable(list, func(a, b int) bool {
			if list[a].Line != list[b].Line {
				return list[a].Line < list[b].Line
			}
			return list[a].Column < list[b].Column
		})
		groups = append(groups, fileGroup{file: file, issues: list})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].file < groups[b].file })
	return groups
}

func marker(s issue.Severity) string {
	switch s {
	case issue.SeverityError:
		return "E"
	case issue.SeverityWarning:
		return "W"
	default:
		return "I"
	}
}
