// Package output provides utilities for formatting user-facing output and messages
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mrz1836/go-pycheck/internal/issue"
)

// Formatter handles terminal output for the CLI
type Formatter struct {
	colorEnabled bool
	out          io.Writer
	err          io.Writer
}

// Options for configuring the formatter
type Options struct {
	ColorEnabled bool
	Out          io.Writer
	Err          io.Writer
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	f := &Formatter{
		colorEnabled: opts.ColorEnabled,
		out:          opts.Out,
		err:          opts.Err,
	}

	if f.out == nil {
		f.out = os.Stdout
	}
	if f.err == nil {
		f.err = os.Stderr
	}

	// Coloring is applied per call; the global color.NoColor is never touched
	return f
}

// ColorMode represents the color output mode
type ColorMode int

const (
	// ColorAuto automatically detects the best color setting
	ColorAuto ColorMode = iota
	// ColorAlways always enables color output
	ColorAlways
	// ColorNever never enables color output
	ColorNever
)

// ParseColorMode converts a --color value into a ColorMode
func ParseColorMode(name string) (ColorMode, bool) {
	switch name {
	case "auto", "":
		return ColorAuto, true
	case "always":
		return ColorAlways, true
	case "never":
		return ColorNever, true
	default:
		return ColorAuto, false
	}
}

// ShouldUseColor determines if color output should be enabled based on the mode
func ShouldUseColor(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		if os.Getenv("PYCHECK_COLOR_OUTPUT") == "false" {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		if isCI() {
			return false
		}
		return isTTY()
	default:
		return false
	}
}

// isCI detects if we're running in a CI environment
func isCI() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"CIRCLECI",
		"TRAVIS",
		"BUILDKITE",
		"DRONE",
		"TEAMCITY_VERSION",
		"TF_BUILD", // Azure DevOps
		"APPVEYOR",
		"CODEBUILD_BUILD_ID", // AWS CodeBuild
	}

	for _, envVar := range ciEnvVars {
		if value := os.Getenv(envVar); value == "true" || value == "1" || (envVar != "CI" && value != "") {
			return true
		}
	}

	return false
}

func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func (f *Formatter) print(w io.Writer, attr color.Attribute, text string) {
	if f.colorEnabled {
		c := color.New(attr)
		c.EnableColor()
		_, _ = c.Fprint(w, text)
		return
	}
	_, _ = fmt.Fprint(w, text)
}

// Success prints a success message with green checkmark
func (f *Formatter) Success(format string, args ...interface{}) {
	f.print(f.out, color.FgGreen, "✓ "+fmt.Sprintf(format, args...)+"\n")
}

// Error prints an error message with red X
func (f *Formatter) Error(format string, args ...interface{}) {
	f.print(f.err, color.FgRed, "✗ "+fmt.Sprintf(format, args...)+"\n")
}

// Warning prints a warning message with yellow warning symbol
func (f *Formatter) Warning(format string, args ...interface{}) {
	f.print(f.err, color.FgYellow, "⚠ "+fmt.Sprintf(format, args...)+"\n")
}

// Info prints an info message with blue info symbol
func (f *Formatter) Info(format string, args ...interface{}) {
	f.print(f.out, color.FgBlue, "ℹ "+fmt.Sprintf(format, args...)+"\n")
}

// Feedback prints an already rendered hook message in the color of its level.
// The message carries its own icon.
func (f *Formatter) Feedback(level, message string) {
	if message == "" {
		return
	}
	attr := color.FgBlue
	switch level {
	case issue.SeverityError.String():
		attr = color.FgRed
	case issue.SeverityWarning.String():
		attr = color.FgYellow
	}
	f.print(f.out, attr, message+"\n")
}

// severityColor maps a severity to the color of its report marker
func severityColor(s issue.Severity) color.Attribute {
	switch s {
	case issue.SeverityError:
		return color.FgRed
	case issue.SeverityWarning:
		return color.FgYellow
	default:
		return color.FgBlue
	}
}
