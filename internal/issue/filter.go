package issue

import "strings"

// DefaultReportLevel is used when a report level is missing or unrecognized
const DefaultReportLevel = SeverityWarning

// ParseLevel converts a report level name, falling back to DefaultReportLevel
func ParseLevel(name string) Severity {
	if strings.TrimSpace(name) == "" {
		return DefaultReportLevel
	}
	level, ok := ParseSeverity(name)
	if !ok {
		return DefaultReportLevel
	}
	return level
}

// FilterByLevel keeps the issues whose severity is at least as urgent as minLevel
func FilterByLevel(issues []Issue, minLevel Severity) []Issue {
	limit := minLevel.Rank()
	filtered := make([]Issue, 0, len(issues))
	for _, i := range issues {
		if i.Severity.Rank() <= limit {
			filtered = append(filtered, i)
		}
	}
	return filtered
}
