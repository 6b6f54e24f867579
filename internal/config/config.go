// Package config resolves the pycheck configuration from overrides, the environment,
// the [tool.pycheck] section of pyproject.toml and built-in defaults
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
)

// Check kind names, shared by the hook settings, tool requests and CLI toggles
const (
	CheckFormat = "format"
	CheckLint   = "lint"
	CheckTypes  = "types"
	CheckStubs  = "stubs"
)

// CheckKinds lists every check kind in execution order
var CheckKinds = []string{CheckFormat, CheckLint, CheckTypes, CheckStubs} //nolint:gochecknoglobals // read-only table

// Verbosity names accepted by the hook renderer
var verbosities = []string{"minimal", "normal", "detailed"} //nolint:gochecknoglobals // read-only table

const (
	// PyprojectFile is the project configuration file searched for upward
	PyprojectFile = "pyproject.toml"
	// EnvFile holds optional PYCHECK_* values next to pyproject.toml
	EnvFile = ".pycheck.env"
	// Section is the pyproject.toml table holding pycheck settings
	Section = "tool.pycheck"

	defaultTimeout = 120 * time.Second
)

// StubPattern is one placeholder-detection rule
type StubPattern struct {
	Pattern     string `mapstructure:"pattern" yaml:"pattern"`
	Description string `mapstructure:"description" yaml:"description"`
}

// HookSettings controls the post-write hook
type HookSettings struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	FilePatterns []string `json:"file_patterns" yaml:"file_patterns" validate:"dive,required"`
	ReportLevel  string   `json:"report_level" yaml:"report_level" validate:"omitempty,oneof=error warning info"`
	AutoInject   bool     `json:"auto_inject" yaml:"auto_inject"`
	Checks       []string `json:"checks" yaml:"checks" validate:"dive,oneof=format lint types stubs"`
	Verbosity    string   `json:"verbosity" yaml:"verbosity" validate:"omitempty,oneof=minimal normal detailed"`
	ShowClean    bool     `json:"show_clean" yaml:"show_clean"`
}

// ToolSettings locates the external tools and bounds their runtime
type ToolSettings struct {
	RuffPath    string
	PyrightPath string
	Timeout     time.Duration
}

// Config holds the resolved check configuration. It is not modified after Load returns.
type Config struct {
	// Check toggles
	EnableRuffFormat bool // PYCHECK_ENABLE_RUFF_FORMAT
	EnableRuffLint   bool // PYCHECK_ENABLE_RUFF_LINT
	EnablePyright    bool // PYCHECK_ENABLE_PYRIGHT
	EnableStubCheck  bool // PYCHECK_ENABLE_STUB_CHECK

	// File selection
	ExcludePatterns  []string
	IncludePatterns  []string
	RespectGitignore bool

	// Behavior
	FailOnWarning bool // PYCHECK_FAIL_ON_WARNING
	AutoFix       bool // PYCHECK_AUTO_FIX

	StubPatterns []StubPattern
	Hook         HookSettings
	Tools        ToolSettings

	// Source is the pyproject.toml that contributed settings, empty when none did
	Source string
}

// Overrides are explicit programmatic settings. Nil fields leave lower layers untouched.
type Overrides struct {
	EnableRuffFormat *bool
	EnableRuffLint   *bool
	EnablePyright    *bool
	EnableStubCheck  *bool
	FailOnWarning    *bool
	AutoFix          *bool
	RespectGitignore *bool
	ExcludePatterns  []string
	IncludePatterns  []string
	StubPatterns     []StubPattern
	Timeout          *time.Duration
}

// LoadOptions tells Load where to look
type LoadOptions struct {
	// ConfigPath is an explicit pyproject.toml; when empty one is searched for upward from StartDir
	ConfigPath string
	// StartDir defaults to the working directory
	StartDir  string
	Overrides *Overrides
	Logger    *slog.Logger
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		EnableRuffFormat: true,
		EnableRuffLint:   true,
		EnablePyright:    true,
		EnableStubCheck:  true,
		ExcludePatterns: []string{
			".venv/**",
			"__pycache__/**",
			"*.egg-info/**",
			".git/**",
			"node_modules/**",
			"build/**",
			"dist/**",
		},
		IncludePatterns:  []string{"**/*.py"},
		RespectGitignore: true,
		StubPatterns: []StubPattern{
			{Pattern: `\bTODO\b`, Description: "TODO comment"},
			{Pattern: `\bFIXME\b`, Description: "FIXME comment"},
			{Pattern: `\bXXX\b`, Description: "XXX marker"},
			{Pattern: `raise\s+NotImplementedError\b`, Description: "NotImplementedError"},
			{Pattern: `return\s+["']not\s+implemented`, Description: "Not implemented return"},
			{Pattern: `#.*coming\s+soon`, Description: "Coming soon comment"},
		},
		Hook: HookSettings{
			Enabled:      true,
			FilePatterns: []string{"*.py"},
			ReportLevel:  "warning",
			AutoInject:   true,
			Checks:       slices.Clone(CheckKinds),
			Verbosity:    "normal",
			ShowClean:    true,
		},
		Tools: ToolSettings{
			RuffPath:    "ruff",
			PyrightPath: "pyright",
			Timeout:     defaultTimeout,
		},
	}
}

// Load resolves the configuration. It never fails: every unreadable or invalid
// source is logged at debug level and skipped in favor of the next lower layer.
func Load(opts LoadOptions) *Config {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	pyproject := opts.ConfigPath
	if pyproject == "" {
		found, err := FindPyproject(opts.StartDir)
		if err != nil {
			logger.Debug("no pyproject.toml found", "error", err)
		}
		pyproject = found
	}

	if pyproject != "" {
		if err := applyPyproject(cfg, pyproject); err != nil {
			logger.Debug("ignoring pyproject settings", "path", pyproject, "error", err)
		} else {
			cfg.Source = pyproject
		}
	}

	applyEnv(cfg, envLookup(pyproject, logger))

	if opts.Overrides != nil {
		opts.Overrides.apply(cfg)
	}

	return cfg
}

// FindPyproject walks upward from start (default: working directory) to the
// filesystem root looking for pyproject.toml
func FindPyproject(start string) (string, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		start = cwd
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		candidate := filepath.Join(dir, PyprojectFile)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", prerrors.ErrConfigNotFound
}

// fileSettings mirrors the [tool.pycheck] table. Pointer fields stay nil when absent.
type fileSettings struct {
	EnableRuffFormat *bool         `mapstructure:"enable_ruff_format"`
	EnableRuffLint   *bool         `mapstructure:"enable_ruff_lint"`
	EnablePyright    *bool         `mapstructure:"enable_pyright"`
	EnableStubCheck  *bool         `mapstructure:"enable_stub_check"`
	ExcludePatterns  []string      `mapstructure:"exclude_patterns"`
	IncludePatterns  []string      `mapstructure:"include_patterns"`
	RespectGitignore *bool         `mapstructure:"respect_gitignore"`
	FailOnWarning    *bool         `mapstructure:"fail_on_warning"`
	AutoFix          *bool         `mapstructure:"auto_fix"`
	StubPatterns     []StubPattern `mapstructure:"stub_patterns"`
	Hook             *struct {
		Enabled      *bool    `mapstructure:"enabled"`
		FilePatterns []string `mapstructure:"file_patterns"`
		ReportLevel  *string  `mapstructure:"report_level"`
		AutoInject   *bool    `mapstructure:"auto_inject_feedback"`
		Checks       []string `mapstructure:"checks"`
		Verbosity    *string  `mapstructure:"verbosity"`
		ShowClean    *bool    `mapstructure:"show_clean"`
	} `mapstructure:"hook"`
	Tools *struct {
		Ruff           *string `mapstructure:"ruff"`
		Pyright        *string `mapstructure:"pyright"`
		TimeoutSeconds *int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"tools"`
}

// applyPyproject layers the [tool.pycheck] section onto cfg. The layer is applied
// to a copy first so an invalid section leaves cfg untouched.
func applyPyproject(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	section := v.Sub(Section)
	if section == nil {
		return prerrors.ErrConfigSectionMissing
	}

	var fs fileSettings
	if err := section.Unmarshal(&fs); err != nil {
		return fmt.Errorf("failed to decode [%s]: %w", Section, err)
	}

	candidate := cfg.Clone()
	fs.apply(candidate)
	if err := candidate.Validate(); err != nil {
		return err
	}

	*cfg = *candidate
	return nil
}

func (fs *fileSettings) apply(cfg *Config) {
	setBool(&cfg.EnableRuffFormat, fs.EnableRuffFormat)
	setBool(&cfg.EnableRuffLint, fs.EnableRuffLint)
	setBool(&cfg.EnablePyright, fs.EnablePyright)
	setBool(&cfg.EnableStubCheck, fs.EnableStubCheck)
	setBool(&cfg.RespectGitignore, fs.RespectGitignore)
	setBool(&cfg.FailOnWarning, fs.FailOnWarning)
	setBool(&cfg.AutoFix, fs.AutoFix)
	setList(&cfg.ExcludePatterns, fs.ExcludePatterns)
	setList(&cfg.IncludePatterns, fs.IncludePatterns)
	if fs.StubPatterns != nil {
		cfg.StubPatterns = slices.Clone(fs.StubPatterns)
	}

	if h := fs.Hook; h != nil {
		setBool(&cfg.Hook.Enabled, h.Enabled)
		setList(&cfg.Hook.FilePatterns, h.FilePatterns)
		setString(&cfg.Hook.ReportLevel, h.ReportLevel)
		setBool(&cfg.Hook.AutoInject, h.AutoInject)
		setList(&cfg.Hook.Checks, h.Checks)
		setString(&cfg.Hook.Verbosity, h.Verbosity)
		setBool(&cfg.Hook.ShowClean, h.ShowClean)
	}

	if t := fs.Tools; t != nil {
		setString(&cfg.Tools.RuffPath, t.Ruff)
		setString(&cfg.Tools.PyrightPath, t.Pyright)
		if t.TimeoutSeconds != nil {
			cfg.Tools.Timeout = time.Duration(*t.TimeoutSeconds) * time.Second
		}
	}
}

// envLookup returns a lookup over the process environment, falling back to
// values read from .pycheck.env next to the discovered pyproject.toml
func envLookup(pyproject string, logger *slog.Logger) func(string) (string, bool) {
	var fileValues map[string]string
	if pyproject != "" {
		envPath := filepath.Join(filepath.Dir(pyproject), EnvFile)
		if _, err := os.Stat(envPath); err == nil {
			values, readErr := godotenv.Read(envPath)
			if readErr != nil {
				logger.Debug("ignoring env file", "path", envPath, "error", readErr)
			} else {
				fileValues = values
			}
		}
	}

	return func(key string) (string, bool) {
		if val, ok := os.LookupEnv(key); ok {
			return val, true
		}
		val, ok := fileValues[key]
		return val, ok
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	cfg.EnableRuffFormat = getBoolEnv(lookup, "PYCHECK_ENABLE_RUFF_FORMAT", cfg.EnableRuffFormat)
	cfg.EnableRuffLint = getBoolEnv(lookup, "PYCHECK_ENABLE_RUFF_LINT", cfg.EnableRuffLint)
	cfg.EnablePyright = getBoolEnv(lookup, "PYCHECK_ENABLE_PYRIGHT", cfg.EnablePyright)
	cfg.EnableStubCheck = getBoolEnv(lookup, "PYCHECK_ENABLE_STUB_CHECK", cfg.EnableStubCheck)
	cfg.FailOnWarning = getBoolEnv(lookup, "PYCHECK_FAIL_ON_WARNING", cfg.FailOnWarning)
	cfg.AutoFix = getBoolEnv(lookup, "PYCHECK_AUTO_FIX", cfg.AutoFix)
}

func (o *Overrides) apply(cfg *Config) {
	setBool(&cfg.EnableRuffFormat, o.EnableRuffFormat)
	setBool(&cfg.EnableRuffLint, o.EnableRuffLint)
	setBool(&cfg.EnablePyright, o.EnablePyright)
	setBool(&cfg.EnableStubCheck, o.EnableStubCheck)
	setBool(&cfg.FailOnWarning, o.FailOnWarning)
	setBool(&cfg.AutoFix, o.AutoFix)
	setBool(&cfg.RespectGitignore, o.RespectGitignore)
	setList(&cfg.ExcludePatterns, o.ExcludePatterns)
	setList(&cfg.IncludePatterns, o.IncludePatterns)
	if o.StubPatterns != nil {
		cfg.StubPatterns = slices.Clone(o.StubPatterns)
	}
	if o.Timeout != nil && *o.Timeout > 0 {
		cfg.Tools.Timeout = *o.Timeout
	}
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.ExcludePatterns = slices.Clone(c.ExcludePatterns)
	clone.IncludePatterns = slices.Clone(c.IncludePatterns)
	clone.StubPatterns = slices.Clone(c.StubPatterns)
	clone.Hook.FilePatterns = slices.Clone(c.Hook.FilePatterns)
	clone.Hook.Checks = slices.Clone(c.Hook.Checks)
	return &clone
}

// WithChecks returns a copy with only the named check kinds enabled.
// An empty list leaves the toggles as they are.
func (c *Config) WithChecks(kinds []string) *Config {
	clone := c.Clone()
	if len(kinds) == 0 {
		return clone
	}
	clone.EnableRuffFormat = slices.Contains(kinds, CheckFormat)
	clone.EnableRuffLint = slices.Contains(kinds, CheckLint)
	clone.EnablePyright = slices.Contains(kinds, CheckTypes)
	clone.EnableStubCheck = slices.Contains(kinds, CheckStubs)
	return clone
}

// Enabled reports whether the named check kind is switched on
func (c *Config) Enabled(kind string) bool {
	switch kind {
	case CheckFormat:
		return c.EnableRuffFormat
	case CheckLint:
		return c.EnableRuffLint
	case CheckTypes:
		return c.EnablePyright
	case CheckStubs:
		return c.EnableStubCheck
	default:
		return false
	}
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []string

	if c.Tools.Timeout <= 0 {
		errs = append(errs, "tools.timeout_seconds must be greater than 0")
	}
	if strings.TrimSpace(c.Tools.RuffPath) == "" {
		errs = append(errs, "tools.ruff must not be empty")
	}
	if strings.TrimSpace(c.Tools.PyrightPath) == "" {
		errs = append(errs, "tools.pyright must not be empty")
	}

	for i, p := range c.StubPatterns {
		if strings.TrimSpace(p.Pattern) == "" {
			errs = append(errs, fmt.Sprintf("stub pattern at index %d is empty", i))
		}
	}
	for i, p := range c.ExcludePatterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("exclude pattern at index %d is empty", i))
		}
	}

	switch strings.ToLower(c.Hook.ReportLevel) {
	case "error", "warning", "info":
	default:
		errs = append(errs, "hook.report_level must be one of: error, warning, info")
	}
	if !slices.Contains(verbosities, strings.ToLower(c.Hook.Verbosity)) {
		errs = append(errs, "hook.verbosity must be one of: minimal, normal, detailed")
	}
	for _, kind := range c.Hook.Checks {
		if !slices.Contains(CheckKinds, kind) {
			errs = append(errs, fmt.Sprintf("hook.checks contains unknown check %q", kind))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	Errors []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Help returns the configuration reference shown by `pycheck --help`
func Help() string {
	return `Configuration (highest precedence first):
  1. Command-line flags
  2. Environment variables (process environment, then .pycheck.env next to pyproject.toml)
  3. [tool.pycheck] in the nearest pyproject.toml
  4. Built-in defaults

Environment Variables (true/1/yes, false/0/no):
  PYCHECK_ENABLE_RUFF_FORMAT    Run ruff format --check
  PYCHECK_ENABLE_RUFF_LINT      Run ruff check
  PYCHECK_ENABLE_PYRIGHT        Run pyright
  PYCHECK_ENABLE_STUB_CHECK     Scan for TODOs and placeholder code
  PYCHECK_FAIL_ON_WARNING       Treat warnings as failures in CI annotations
  PYCHECK_AUTO_FIX              Apply ruff fixes

Example pyproject.toml:
  [tool.pycheck]
  enable_pyright = false
  exclude_patterns = [".venv/**", "migrations/**"]

  [tool.pycheck.hook]
  report_level = "error"
  verbosity = "minimal"

  [tool.pycheck.tools]
  timeout_seconds = 60
`
}

// getBoolEnv parses a recognized boolean value; anything else falls through to defaultValue
func getBoolEnv(lookup func(string) (string, bool), key string, defaultValue bool) bool {
	val, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src []string) {
	if src != nil {
		*dst = slices.Clone(src)
	}
}
