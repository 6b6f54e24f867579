package hook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/issue"
)

// scriptedChecker returns the queued results in order, repeating the last one
type scriptedChecker struct {
	results []*issue.CheckResult
	calls   [][]string
}

func (s *scriptedChecker) CheckFiles(_ context.Context, paths []string, _ bool) *issue.CheckResult {
	s.calls = append(s.calls, paths)
	idx := min(len(s.calls)-1, len(s.results)-1)
	return s.results[idx].Clone()
}

type HookTestSuite struct {
	suite.Suite

	dir     string
	file    string
	cfg     *config.Config
	checker *scriptedChecker
}

func TestHookSuite(t *testing.T) {
	suite.Run(t, new(HookTestSuite))
}

func (s *HookTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.file = filepath.Join(s.dir, "pkg", "mod.py")
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.file), 0o750))
	s.Require().NoError(os.WriteFile(s.file, []byte("x = 1\n"), 0o600))

	s.cfg = config.Default()
	s.checker = &scriptedChecker{results: []*issue.CheckResult{issue.NewResult("ruff-lint")}}
}

func (s *HookTestSuite) handler() *Handler {
	h := NewHandler(s.cfg, Options{Checker: s.checker})
	h.getwd = func() (string, error) { return s.dir, nil }
	h.homeDir = func() (string, error) { return "", errors.New("no home") }
	return h
}

func (s *HookTestSuite) payload(tool, path string) Payload {
	return Payload{ToolName: tool, ToolInput: ToolInput{FilePath: path}}
}

func (s *HookTestSuite) dirty(issues ...issue.Issue) *issue.CheckResult {
	r := issue.NewResult("ruff-lint", "pyright")
	r.FilesChecked = 1
	r.Issues = issues
	return r
}

func (s *HookTestSuite) lintError(line int, msg string) issue.Issue {
	return issue.Issue{File: s.file, Line: line, Column: 1, Code: "F821", Message: msg, Severity: issue.SeverityError, Source: issue.SourceLint}
}

func (s *HookTestSuite) TestPassThroughCases() {
	gone := filepath.Join(s.dir, "gone.py")
	cases := map[string]Payload{
		"read tool":      s.payload("read_file", s.file),
		"empty path":     s.payload("Write", ""),
		"non python":     s.payload("Write", filepath.Join(s.dir, "notes.md")),
		"deleted file":   s.payload("Edit", gone),
		"unknown tool":   s.payload("Bash", s.file),
		"no tool at all": {},
	}

	for name, p := range cases {
		s.Run(name, func() {
			s.Equal(Continue(), s.handler().Handle(context.Background(), EventToolPost, p))
		})
	}
	s.Empty(s.checker.calls)
}

func (s *HookTestSuite) TestDisabled() {
	s.cfg.Hook.Enabled = false

	s.Equal(Continue(), s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file)))
	s.Empty(s.checker.calls)
}

func (s *HookTestSuite) TestPathFieldFallback() {
	p := Payload{ToolName: "edit_file", ToolInput: ToolInput{Path: s.file}}

	res := s.handler().Handle(context.Background(), EventToolPost, p)

	s.Equal(ActionContinue, res.Action)
	s.Equal("✓ pkg/mod.py: clean", res.UserMessage)
	s.Equal("info", res.UserMessageLevel)
	s.Equal([][]string{{s.file}}, s.checker.calls)
}

func (s *HookTestSuite) TestCleanWithoutShowClean() {
	s.cfg.Hook.ShowClean = false

	s.Equal(Continue(), s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file)))
}

func (s *HookTestSuite) TestErrorsInjectContext() {
	s.checker.results = []*issue.CheckResult{s.dirty(s.lintError(3, "undefined name 'foo'"))}

	res := s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal(ActionInjectContext, res.Action)
	s.Equal("error", res.UserMessageLevel)
	s.Equal("● pkg/mod.py: 1 lint error\n│ error  line 3     undefined name 'foo'", res.UserMessage)
	s.Equal(RoleSystem, res.ContextInjectionRole)
	s.Equal("Python check found issues in pkg/mod.py:\n- "+s.file+":3:1: [F821] undefined name 'foo'", res.ContextInjection)
}

func (s *HookTestSuite) TestWarningsOnlySkipDetailsAtNormal() {
	warn := issue.Issue{File: s.file, Line: 1, Column: 1, Code: "STUB", Message: "TODO comment: # TODO", Severity: issue.SeverityWarning, Source: issue.SourceStub}
	s.checker.results = []*issue.CheckResult{s.dirty(warn)}

	res := s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal("◑ pkg/mod.py: 1 stub", res.UserMessage)
	s.Equal("warning", res.UserMessageLevel)
}

func (s *HookTestSuite) TestAutoInjectOff() {
	s.cfg.Hook.AutoInject = false
	s.checker.results = []*issue.CheckResult{s.dirty(s.lintError(1, "boom"))}

	res := s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal(ActionContinue, res.Action)
	s.NotEmpty(res.UserMessage)
	s.Empty(res.ContextInjection)
	s.Empty(res.ContextInjectionRole)
}

func (s *HookTestSuite) TestReportLevelFiltersBeforeRendering() {
	info := issue.Issue{File: s.file, Line: 1, Column: 1, Code: "reportUnused", Message: "unused", Severity: issue.SeverityInfo, Source: issue.SourceType}
	s.checker.results = []*issue.CheckResult{s.dirty(info)}

	res := s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	s.Equal("✓ pkg/mod.py: clean", res.UserMessage)

	s.cfg.Hook.ReportLevel = "info"
	res = s.handler().Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	s.Equal(ActionInjectContext, res.Action)
}

func (s *HookTestSuite) TestProgressAcrossEdits() {
	s.checker.results = []*issue.CheckResult{
		s.dirty(s.lintError(1, "a"), s.lintError(2, "b"), issue.Issue{File: s.file, Line: 3, Column: 1, Code: "W291", Message: "c", Severity: issue.SeverityWarning, Source: issue.SourceLint}),
		issue.NewResult("ruff-lint"),
	}
	h := s.handler()

	first := h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	second := h.Handle(context.Background(), EventToolPost, s.payload("Edit", s.file))

	s.Equal(ActionInjectContext, first.Action)
	s.Equal("✓ pkg/mod.py: clean (was 3 issues)", second.UserMessage)

	st, ok := h.Tracker().Get(s.file)
	s.Require().True(ok)
	s.Equal(2, st.CheckCount)
}

func (s *HookTestSuite) TestRepeatedIdenticalCountsAreSuppressed() {
	s.checker.results = []*issue.CheckResult{s.dirty(s.lintError(1, "a"))}
	h := s.handler()

	first := h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	second := h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal(ActionInjectContext, first.Action)
	s.Equal(Continue(), second)
}

func (s *HookTestSuite) TestRepeatedIdenticalCountsRenderWhenDetailed() {
	s.cfg.Hook.Verbosity = "detailed"
	s.checker.results = []*issue.CheckResult{s.dirty(s.lintError(1, "a"))}
	h := s.handler()

	h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	second := h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal(ActionInjectContext, second.Action)
}

func (s *HookTestSuite) TestSharedTracker() {
	s.checker.results = []*issue.CheckResult{s.dirty(s.lintError(1, "a"))}
	h1 := s.handler()
	h2 := NewHandler(s.cfg, Options{Checker: s.checker, Tracker: h1.Tracker()})

	h1.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	res := h2.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))

	s.Equal(Continue(), res)
}

func (s *HookTestSuite) TestMatches() {
	s.cfg.Hook.FilePatterns = []string{"*.py", "**/stubs/*.pyi"}
	h := s.handler()

	s.True(h.Matches("/work/pkg/a.py"))
	s.True(h.Matches("work/stubs/a.pyi"))
	s.False(h.Matches("/work/pkg/a.pyi"))
	s.False(h.Matches("/work/README.md"))
}

func (s *HookTestSuite) TestDisplayPath() {
	h := s.handler()
	s.Equal("pkg/mod.py", h.DisplayPath(s.file))

	home := filepath.Join(s.dir, "home")
	h.getwd = func() (string, error) { return filepath.Join(s.dir, "elsewhere"), nil }
	h.homeDir = func() (string, error) { return home, nil }
	s.Equal("~/proj/a.py", h.DisplayPath(filepath.Join(home, "proj", "a.py")))

	h.getwd = func() (string, error) { return "", errors.New("cwd gone") }
	h.homeDir = func() (string, error) { return "", errors.New("no home") }
	s.Equal("mod.py", h.DisplayPath(s.file))
}

func (s *HookTestSuite) TestMetadata() {
	md := s.handler().Metadata()

	s.Equal(ModuleName, md.Name)
	s.Equal(ModuleVersion, md.Version)
	s.Equal([]string{"python_check_hook"}, md.Provides)
	s.Equal(s.cfg.Hook, md.Config)
}

func (s *HookTestSuite) TestNeverFixesWrittenFile() {
	if runtime.GOOS == "windows" {
		s.T().Skip("shell scripts are not executable on Windows")
	}
	argvLog := filepath.Join(s.dir, "ruff-argv.log")
	ruff := filepath.Join(s.dir, "bin", "ruff")
	s.Require().NoError(os.MkdirAll(filepath.Dir(ruff), 0o750))
	script := "#!/bin/sh\necho \"$*\" >> '" + argvLog + "'\nif [ \"$1\" = check ]; then echo '[]'; fi\n"
	s.Require().NoError(os.WriteFile(ruff, []byte(script), 0o700)) //nolint:gosec // test executable

	s.cfg.AutoFix = true
	s.cfg.Tools.RuffPath = ruff
	s.cfg.Hook.Checks = []string{config.CheckFormat, config.CheckLint}

	h := NewHandler(s.cfg, Options{})
	h.getwd = func() (string, error) { return s.dir, nil }
	res := h.Handle(context.Background(), EventToolPost, s.payload("Write", s.file))
	s.Equal(ActionContinue, res.Action)

	data, err := os.ReadFile(argvLog) //nolint:gosec // test file
	s.Require().NoError(err)
	calls := strings.Split(strings.TrimSpace(string(data)), "\n")
	s.Require().Len(calls, 2)
	s.True(strings.HasPrefix(calls[0], "format --check --diff"), calls[0])
	s.True(strings.HasPrefix(calls[1], "check "), calls[1])
	for _, call := range calls {
		s.NotContains(call, "--fix")
	}
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(`{"event":"tool:post","tool_name":"Write","tool_input":{"file_path":"/a.py","path":"/b.py","content":"x"},"tool_result":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "tool:post", p.Event)
	assert.True(t, p.IsWrite())
	assert.Equal(t, "/a.py", p.TargetPath())

	_, err = ParsePayload([]byte(`{"tool_name":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")

	_, err = ParsePayload([]byte("  "))
	require.Error(t, err)
}

func TestParseSettingsTopLevel(t *testing.T) {
	base := config.Default().Hook

	got, err := ParseSettings([]byte("verbosity: detailed\nfile_patterns: ['*.py', '*.pyi']\nauto_inject: false\n"), base)

	require.NoError(t, err)
	assert.Equal(t, "detailed", got.Verbosity)
	assert.Equal(t, []string{"*.py", "*.pyi"}, got.FilePatterns)
	assert.False(t, got.AutoInject)
	assert.Equal(t, base.ReportLevel, got.ReportLevel, "missing keys keep the base value")
	assert.Equal(t, base.Checks, got.Checks)
}

func TestParseSettingsNestedConfig(t *testing.T) {
	doc := "module: hooks-python-check\nconfig:\n  checks: [lint, stubs]\n  report_level: error\n"

	got, err := ParseSettings([]byte(doc), config.Default().Hook)

	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "stubs"}, got.Checks)
	assert.Equal(t, "error", got.ReportLevel)
	assert.True(t, got.Enabled)
}

func TestParseSettingsRejectsInvalid(t *testing.T) {
	base := config.Default().Hook

	got, err := ParseSettings([]byte("checks: [lint, security]\n"), base)
	require.Error(t, err)
	assert.Equal(t, base, got)

	_, err = ParseSettings([]byte("report_level: loud\n"), base)
	require.Error(t, err)

	_, err = ParseSettings([]byte("verbosity: [nope"), base)
	require.Error(t, err)
}

func TestParseSettingsEmptyDocument(t *testing.T) {
	base := config.Default().Hook

	got, err := ParseSettings(nil, base)

	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLoadSettings(t *testing.T) {
	base := config.Default().Hook
	path := filepath.Join(t.TempDir(), "hook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show_clean: false\n"), 0o600))

	got, err := LoadSettings(path, base)
	require.NoError(t, err)
	assert.False(t, got.ShowClean)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"), base)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.yaml"))
}
