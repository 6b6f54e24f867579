package tools

import (
	"errors"

	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
	"github.com/mrz1836/go-pycheck/internal/issue"
)

// FailureIssue converts an Exec failure into the single error-severity notice a
// runner reports in place of findings
func FailureIssue(err error, source issue.Source) issue.Issue {
	code := issue.CodeToolNotFound
	if errors.Is(err, prerrors.ErrToolTimeout) {
		code = issue.CodeToolTimeout
	}

	message := err.Error()
	var suggestion string
	var checkErr *prerrors.CheckError
	if errors.As(err, &checkErr) {
		message = checkErr.Message
		suggestion = checkErr.Suggestion
	}

	notice := issue.Notice(code, message, issue.SeverityError, source)
	notice.Suggestion = suggestion
	return notice
}
