package ruff

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/tools"
)

const twoFileDiff = `--- a/pkg/mod.py
+++ b/pkg/mod.py
@@ -1,2 +1,2 @@
-x=1
+x = 1
 y = 2
--- main.py
+++ main.py
@@ -1 +1 @@
-print( 1 )
+print(1)
`

const lintJSON = `[
  {
    "code": "F401",
    "message": "` + "`os`" + ` imported but unused",
    "filename": "/work/a.py",
    "location": {"row": 1, "column": 8},
    "end_location": {"row": 1, "column": 10},
    "fix": {"applicability": "safe", "message": "Remove unused import: ` + "`os`" + `", "edits": []}
  },
  {
    "code": "UP006",
    "message": "Use ` + "`list`" + ` instead of ` + "`List`" + `",
    "filename": "/work/a.py",
    "location": {"row": 4, "column": 5},
    "end_location": {"row": 4, "column": 9},
    "fix": {"applicability": "safe", "message": null, "edits": []}
  },
  {
    "code": null,
    "message": "SyntaxError: Expected an expression",
    "filename": "/work/b.py",
    "location": {"row": 2, "column": 1},
    "end_location": {"row": 2, "column": 2},
    "fix": null
  },
  {
    "code": "D100",
    "message": "Missing docstring in public module",
    "filename": "/work/b.py",
    "location": {"row": 1, "column": 1},
    "end_location": {"row": 1, "column": 1},
    "fix": null
  }
]`

func TestParseFormatDiff(t *testing.T) {
	issues := ParseFormatDiff(twoFileDiff)

	require.Len(t, issues, 2)
	assert.Equal(t, "pkg/mod.py", issues[0].File)
	assert.Equal(t, "main.py", issues[1].File)
	for _, i := range issues {
		assert.Equal(t, 1, i.Line)
		assert.Equal(t, 1, i.Column)
		assert.Equal(t, issue.CodeFormat, i.Code)
		assert.Equal(t, issue.SeverityWarning, i.Severity)
		assert.Equal(t, issue.SourceFormat, i.Source)
		assert.Equal(t, "Run with --fix to auto-format", i.Suggestion)
	}
}

func TestParseFormatDiffEmptyAndGarbage(t *testing.T) {
	assert.Empty(t, ParseFormatDiff(""))
	assert.Empty(t, ParseFormatDiff("   \n"))
	assert.Empty(t, ParseFormatDiff("error: Failed to parse pyproject.toml\n"))
}

func TestParseFormatDiffNewFile(t *testing.T) {
	issues := ParseFormatDiff("--- /dev/null\n+++ b/new.py\n@@ -0,0 +1 @@\n+x = 1\n")

	require.Len(t, issues, 1)
	assert.Equal(t, "new.py", issues[0].File)
}

func TestDiffFileNames(t *testing.T) {
	assert.Equal(t, []string{"pkg/mod.py", "main.py"}, diffFileNames(twoFileDiff))
	assert.Empty(t, diffFileNames("error: Failed to parse pyproject.toml\n"))
}

func TestScanDiffHeaders(t *testing.T) {
	names := scanDiffHeaders("--- a/x.py\t2024-01-01\n+++ b/x.py\n+++ stray\n--- y.py\n+++ y.py\n--- /dev/null\n+++ b/z.py\n")

	assert.Equal(t, []string{"x.py", "y.py", "z.py"}, names)
}

func TestPickName(t *testing.T) {
	assert.Equal(t, "a.py", pickName("a.py", "a.py"))
	assert.Equal(t, "new.py", pickName("/dev/null", "new.py"))
	assert.Equal(t, "gone.py", pickName("gone.py", "/dev/null"))
	assert.Empty(t, pickName("/dev/null", "/dev/null"))
}

func TestParseLintJSON(t *testing.T) {
	issues, err := ParseLintJSON(lintJSON)
	require.NoError(t, err)
	require.Len(t, issues, 4)

	unused := issues[0]
	assert.Equal(t, "/work/a.py", unused.File)
	assert.Equal(t, 1, unused.Line)
	assert.Equal(t, 8, unused.Column)
	assert.Equal(t, "F401", unused.Code)
	assert.Equal(t, issue.SeverityError, unused.Severity)
	assert.Equal(t, "Remove unused import: `os`", unused.Suggestion)
	require.NotNil(t, unused.EndLine)
	assert.Equal(t, 10, *unused.EndColumn)

	assert.Equal(t, issue.SeverityWarning, issues[1].Severity)
	assert.Equal(t, "Fix available", issues[1].Suggestion)

	syntax := issues[2]
	assert.Empty(t, syntax.Code)
	assert.Equal(t, issue.SeverityError, syntax.Severity)
	assert.Empty(t, syntax.Suggestion)

	assert.Equal(t, issue.SeverityWarning, issues[3].Severity)
	for _, i := range issues {
		assert.Equal(t, issue.SourceLint, i.Source)
	}
}

func TestParseLintJSONMalformed(t *testing.T) {
	issues, err := ParseLintJSON("{not json")
	require.Error(t, err)
	assert.Empty(t, issues)

	issues, err = ParseLintJSON("")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLintSeverity(t *testing.T) {
	assert.Equal(t, issue.SeverityError, LintSeverity("E501"))
	assert.Equal(t, issue.SeverityError, LintSeverity("F821"))
	assert.Equal(t, issue.SeverityError, LintSeverity(""))
	assert.Equal(t, issue.SeverityWarning, LintSeverity("W291"))
	assert.Equal(t, issue.SeverityWarning, LintSeverity("B006"))
}

func missingToolConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Tools.RuffPath = filepath.Join(t.TempDir(), "no-ruff-here")
	return cfg
}

func TestLintRunnerToolNotFound(t *testing.T) {
	r := NewLintRunner(missingToolConfig(t), nil)

	result := r.Run(context.Background(), []string{"a.py"}, false)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, issue.CodeToolNotFound, result.Issues[0].Code)
	assert.Equal(t, issue.SeverityError, result.Issues[0].Severity)
	assert.Equal(t, "ruff not found. Install with: uv add ruff", result.Issues[0].Message)
	assert.Equal(t, []string{"ruff-lint"}, result.ChecksRun)
}

func TestFormatRunnerToolNotFound(t *testing.T) {
	r := NewFormatRunner(missingToolConfig(t), nil)

	result := r.Run(context.Background(), []string{"a.py"}, true)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, issue.SourceFormat, result.Issues[0].Source)
	assert.Equal(t, []string{"ruff-format"}, result.ChecksRun)
}

// fakeRuff writes a shell script that records its arguments and prints body
func fakeRuff(t *testing.T, body string) (*config.Config, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on Windows")
	}
	tools.CleanCache()

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\ncat <<'EOF'\n" + body + "\nEOF\nexit 1\n"
	path := filepath.Join(dir, "ruff")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700)) //nolint:gosec // test executable

	cfg := config.Default()
	cfg.Tools.RuffPath = path
	cfg.ExcludePatterns = []string{"build/**"}
	return cfg, argsFile
}

func readArgs(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	require.NoError(t, err)
	return string(data)
}

func TestFormatRunnerCheckMode(t *testing.T) {
	cfg, argsFile := fakeRuff(t, twoFileDiff)

	result := NewFormatRunner(cfg, nil).Run(context.Background(), []string{"src"}, false)

	assert.Len(t, result.Issues, 2)
	assert.Equal(t, "format --check --diff --extend-exclude build/** src\n", readArgs(t, argsFile))
}

func TestFormatRunnerFixModeReportsNothing(t *testing.T) {
	cfg, argsFile := fakeRuff(t, "1 file reformatted")

	result := NewFormatRunner(cfg, nil).Run(context.Background(), []string{"a.py"}, true)

	assert.Empty(t, result.Issues)
	assert.Equal(t, "format --extend-exclude build/** a.py\n", readArgs(t, argsFile))
}

func TestLintRunnerParsesOutput(t *testing.T) {
	cfg, argsFile := fakeRuff(t, lintJSON)

	result := NewLintRunner(cfg, nil).Run(context.Background(), []string{"a.py", "b.py"}, true)

	assert.Len(t, result.Issues, 4)
	assert.Equal(t, 2, result.ErrorCount())
	assert.Equal(t, "check --output-format=json --fix --extend-exclude build/** a.py b.py\n", readArgs(t, argsFile))
}

func TestLintRunnerGarbageOutput(t *testing.T) {
	cfg, _ := fakeRuff(t, "ruff crashed: panic")

	result := NewLintRunner(cfg, nil).Run(context.Background(), []string{"a.py"}, false)

	assert.Empty(t, result.Issues)
	assert.Equal(t, []string{"ruff-lint"}, result.ChecksRun)
}

func TestMetadata(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, config.CheckFormat, NewFormatRunner(cfg, nil).Metadata().Kind)
	assert.Equal(t, "ruff", NewLintRunner(cfg, nil).Metadata().Tool)
}
