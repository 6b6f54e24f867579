package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// onlyStubs disables every check that needs an external tool
var onlyStubs = []string{"--no-format", "--no-lint", "--no-types", "--no-color"} //nolint:gochecknoglobals // test fixture

// CLITestSuite runs the command line inside a scratch project
type CLITestSuite struct {
	suite.Suite

	dir string
}

func (s *CLITestSuite) SetupTest() {
	// The stub scanner skips paths containing "test", so t.TempDir is not usable here
	dir, err := os.MkdirTemp("", "pycheck-cli")
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = os.RemoveAll(dir) })

	s.dir = dir
	s.T().Chdir(dir)
	s.T().Setenv("PYCHECK_FAIL_ON_WARNING", "")
}

func (s *CLITestSuite) write(rel, content string) string {
	path := filepath.Join(s.dir, filepath.FromSlash(rel))
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o750))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

// missingTools points ruff and pyright at paths that do not exist
func (s *CLITestSuite) missingTools() {
	s.write("pyproject.toml", `[tool.pycheck.tools]
ruff = "/nonexistent/bin/ruff"
pyright = "/nonexistent/bin/pyright"
`)
}

func runCLI(stdin string, args ...string) (int, string, string) {
	app := NewCLIApp("1.2.3", "abc1234", "2026-01-01")
	var out, errOut bytes.Buffer
	app.SetIO(strings.NewReader(stdin), &out, &errOut)
	code := NewCommandBuilder(app).Run(args)
	return code, out.String(), errOut.String()
}

func (s *CLITestSuite) TestCleanProject() {
	s.write("pkg/app.py", "x = 1\n")

	code, out, _ := runCLI("", onlyStubs...)

	s.Equal(0, code)
	s.Contains(out, "=== pycheck ===")
	s.Contains(out, "All checks passed (1 files)")
	s.Contains(out, "Checks run: stub-check")
}

func (s *CLITestSuite) TestWarningsExitOne() {
	s.write("app.py", "def run():\n    # TODO: implement\n    return 1\n")

	code, out, _ := runCLI("", onlyStubs...)

	s.Equal(1, code)
	s.Contains(out, "app.py\n  2:1 [W] STUB: TODO comment: # TODO: implement")
	s.Contains(out, "Found 1 warning in 1 files")
}

func (s *CLITestSuite) TestOnlyErrorsHidesWarnings() {
	s.write("app.py", "# FIXME later\n")

	code, out, _ := runCLI("", append(onlyStubs, "--only-errors")...)

	s.Equal(0, code)
	s.Contains(out, "All checks passed (1 files)")
}

func (s *CLITestSuite) TestMissingToolExitTwo() {
	s.missingTools()
	path := s.write("app.py", "import os\n")

	code, out, _ := runCLI("", "--no-format", "--no-types", "--no-stubs", "--format", "json", path)

	s.Equal(2, code)
	var resp struct {
		Success   bool     `json:"success"`
		ChecksRun []string `json:"checks_run"`
		Issues    []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
		} `json:"issues"`
	}
	s.Require().NoError(json.Unmarshal([]byte(out), &resp))
	s.False(resp.Success)
	s.Equal([]string{"ruff-lint"}, resp.ChecksRun)
	s.Require().Len(resp.Issues, 1)
	s.Equal("TOOL-NOT-FOUND", resp.Issues[0].Code)
	s.Equal("error", resp.Issues[0].Severity)
}

func (s *CLITestSuite) TestGitHubFormatPromotesWarnings() {
	s.write("app.py", "# XXX\n")
	s.T().Setenv("PYCHECK_FAIL_ON_WARNING", "true")

	code, out, _ := runCLI("", append(onlyStubs, "--format", "github", "app.py")...)

	s.Equal(1, code)
	s.Contains(out, "::error file=app.py,line=1,col=1::STUB: XXX marker: # XXX\n")
	s.Contains(out, "Found 1 warning in 1 files")
}

func (s *CLITestSuite) TestAutoFixFromEnvironment() {
	s.write("app.py", "# TODO: tidy\n")
	s.T().Setenv("PYCHECK_AUTO_FIX", "true")

	code, out, _ := runCLI("", onlyStubs...)

	s.Equal(1, code)
	s.Contains(out, "Note: Some issues were auto-fixed. Run again to verify.")
}

func (s *CLITestSuite) TestStagedWithNothingStaged() {
	if _, err := exec.LookPath("git"); err != nil {
		s.T().Skip("git is not installed")
	}
	s.Require().NoError(exec.Command("git", "init", "-q", s.dir).Run())
	s.write("app.py", "# TODO: not staged\n")

	code, out, errOut := runCLI("", append(onlyStubs, "--staged")...)

	s.Equal(0, code)
	s.Contains(errOut, "No staged Python files to check")
	s.Contains(out, "=== pycheck ===")
	s.NotContains(out, "STUB")
}

func (s *CLITestSuite) TestNonPythonInputs() {
	s.write("notes.txt", "hello\n")

	code, out, _ := runCLI("", append(onlyStubs, "notes.txt")...)

	s.Equal(0, code)
	s.Contains(out, "No Python files to check. Skipped 1 non-Python file(s): notes.txt.")
}

func (s *CLITestSuite) TestUsageErrors() {
	cases := map[string]struct {
		args []string
		want string
	}{
		"unknown format":   {[]string{"--format", "xml"}, "--format must be one of text, json, github"},
		"missing path":     {[]string{"does-not-exist.py"}, "path does not exist"},
		"staged and paths": {[]string{"--staged", "app.py"}, "--staged cannot be combined with paths"},
		"missing config":   {[]string{"--config", "nope.toml"}, "path does not exist"},
		"bad color":        {[]string{"--color", "sometimes"}, "--color must be auto, always or never"},
		"unknown flag":     {[]string{"--bogus"}, "unknown flag"},
	}

	for name, tc := range cases {
		s.Run(name, func() {
			code, _, errOut := runCLI("", tc.args...)
			s.Equal(ExitUsage, code)
			s.Contains(errOut, tc.want)
		})
	}
}

func (s *CLITestSuite) TestConfigFlagDisablesChecks() {
	cfg := s.write("conf/pyproject.toml", `[tool.pycheck]
enable_ruff_format = false
enable_ruff_lint = false
enable_pyright = false
`)
	s.write("app.py", "y = 2\n")

	code, out, _ := runCLI("", "--no-color", "--config", cfg)

	s.Equal(0, code)
	s.Contains(out, "Checks run: stub-check")
}

func (s *CLITestSuite) TestHookInjectsContext() {
	s.write("app.py", "def run():\n    raise NotImplementedError\n")
	settings := s.write("hook.yaml", "checks: [stubs]\nverbosity: normal\n")

	code, out, _ := runCLI(`{"tool_name":"write_file","tool_input":{"file_path":"app.py"}}`, "hook", "--settings", settings)

	s.Equal(0, code)
	var res map[string]string
	s.Require().NoError(json.Unmarshal([]byte(out), &res))
	s.Equal("inject_context", res["action"])
	s.Equal("system", res["context_injection_role"])
	s.Contains(res["context_injection"], "Python check found issues in app.py:")
	s.Contains(res["user_message"], "app.py")
}

func (s *CLITestSuite) TestHookPassThrough() {
	cases := map[string]string{
		"malformed":     `{"tool_name":`,
		"not a write":   `{"tool_name":"read_file","tool_input":{"file_path":"app.py"}}`,
		"not python":    `{"tool_name":"Write","tool_input":{"file_path":"notes.md"}}`,
		"missing file":  `{"tool_name":"Edit","tool_input":{"path":"gone.py"}}`,
		"empty payload": ``,
	}

	for name, payload := range cases {
		s.Run(name, func() {
			code, out, _ := runCLI(payload, "hook")
			s.Equal(0, code)
			s.JSONEq(`{"action":"continue"}`, out)
		})
	}
}

func (s *CLITestSuite) TestHookMetadata() {
	code, out, _ := runCLI("", "hook", "--metadata")

	s.Equal(0, code)
	s.Contains(out, `"name": "hooks-python-check"`)
	s.Contains(out, `"python_check_hook"`)
}

func (s *CLITestSuite) TestToolContent() {
	code, out, _ := runCLI(`{"content":"# TODO: later\nx = 1\n","checks":["stubs"]}`, "tool")

	s.Equal(1, code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal([]byte(out), &resp))
	s.Equal(true, resp["success"])
	s.InDelta(1, resp["warning_count"], 0)
}

func (s *CLITestSuite) TestToolRejectsInvalidRequest() {
	code, out, errOut := runCLI(`{"paths":["a.py"],"content":"x"}`, "tool")

	s.Equal(ExitUsage, code)
	s.Empty(out)
	s.Contains(errOut, "paths and content are mutually exclusive")
}

func (s *CLITestSuite) TestToolDescribe() {
	s.missingTools()

	code, out, _ := runCLI("", "tool", "--describe")

	s.Equal(0, code)
	var desc toolDescription
	s.Require().NoError(json.Unmarshal([]byte(out), &desc))
	s.Equal("python_check", desc.Name)
	s.Contains(desc.Description, "Check Python code for quality issues.")
	s.Equal("tool-python-check", desc.Metadata.Name)

	s.Require().Len(desc.Checks, 4)
	s.Equal("ruff-format", desc.Checks[0].Name)
	s.Equal("stub-check", desc.Checks[3].Name)
	s.Empty(desc.Checks[3].Tool)
	for _, c := range desc.Checks {
		s.True(c.Enabled, c.Name)
	}

	s.Require().Len(desc.Tools, 2)
	s.Equal("pyright", desc.Tools[0].Name)
	s.Equal("/nonexistent/bin/pyright", desc.Tools[0].Binary)
	s.False(desc.Tools[0].Installed)
	s.Equal("uv add ruff", desc.Tools[1].InstallHint)
	s.False(desc.Tools[1].Installed)
}

func (s *CLITestSuite) TestWatchMissingDirectory() {
	code, _, errOut := runCLI("", "watch", "--no-color", filepath.Join(s.dir, "missing"))

	s.Equal(ExitUsage, code)
	s.Contains(errOut, "cannot watch")
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func TestBuildRootCmdProperties(t *testing.T) {
	cmd := NewCommandBuilder(NewCLIApp("1.2.3", "commit456", "2026-08-10")).Build()

	assert.Equal(t, "pycheck", cmd.Name())
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
	assert.Equal(t, "1.2.3 (commit: commit456, built: 2026-08-10)", cmd.Version)

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"hook", "tool", "watch"})

	for _, flag := range []string{"fix", "format", "no-format", "no-lint", "no-types", "no-stubs", "only-errors", "staged"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
	for _, flag := range []string{"verbose", "no-color", "color", "parallel", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionFlag(t *testing.T) {
	code, out, _ := runCLI("", "--version")

	require.Equal(t, 0, code)
	assert.Equal(t, "pycheck version 1.2.3 (commit: abc1234, built: 2026-01-01)\n", out)
}

func TestCheckOptionsOverrides(t *testing.T) {
	ov := (&checkOptions{noLint: true, noStubs: true}).overrides()

	assert.Nil(t, ov.EnableRuffFormat)
	require.NotNil(t, ov.EnableRuffLint)
	assert.False(t, *ov.EnableRuffLint)
	assert.Nil(t, ov.EnablePyright)
	require.NotNil(t, ov.EnableStubCheck)
	assert.False(t, *ov.EnableStubCheck)
}
