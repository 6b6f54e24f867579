// Package hook checks Python files after a host tool writes them and turns the
// outcome into feedback for the user and the agent
package hook

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/issue"
	"github.com/mrz1836/go-pycheck/internal/render"
	"github.com/mrz1836/go-pycheck/internal/runner"
	"github.com/mrz1836/go-pycheck/internal/state"
)

// Module identity reported by Metadata
const (
	ModuleName    = "hooks-python-check"
	ModuleVersion = "0.2.0"
	EventToolPost = "tool:post"
)

// Checker is the part of runner.Checker the hook needs
type Checker interface {
	CheckFiles(ctx context.Context, paths []string, fix bool) *issue.CheckResult
}

// Handler is one hook session. Its tracker lives as long as the handler.
type Handler struct {
	settings config.HookSettings
	checker  Checker
	tracker  *state.Tracker
	renderer *render.Renderer
	logger   *slog.Logger

	getwd   func() (string, error)
	homeDir func() (string, error)
}

// Options configures a Handler
type Options struct {
	// Checker overrides the checker built from the config
	Checker Checker
	// Tracker lets several handlers share history; a fresh one is created when nil
	Tracker  *state.Tracker
	Parallel bool
	Logger   *slog.Logger
}

// NewHandler creates a handler using cfg.Hook. The checks it runs are the
// hook's check list applied to cfg.
func NewHandler(cfg *config.Config, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checker := opts.Checker
	if checker == nil {
		checker = runner.New(cfg.WithChecks(cfg.Hook.Checks), runner.Options{Parallel: opts.Parallel, Logger: logger})
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = state.NewTracker()
	}

	return &Handler{
		settings: cfg.Hook,
		checker:  checker,
		tracker:  tracker,
		renderer: render.New(cfg.Hook.Verbosity),
		logger:   logger,
		getwd:    os.Getwd,
		homeDir:  os.UserHomeDir,
	}
}

// Tracker returns the handler's file history
func (h *Handler) Tracker() *state.Tracker {
	return h.tracker
}

// Handle processes one post-tool event
func (h *Handler) Handle(ctx context.Context, event string, p Payload) Result {
	if !h.settings.Enabled {
		return Continue()
	}
	if !p.IsWrite() {
		return Continue()
	}

	path := p.TargetPath()
	if path == "" || !h.Matches(path) {
		return Continue()
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Debug("skipping vanished file", "path", path, "error", err)
		return Continue()
	}

	h.logger.Debug("checking written file", "event", event, "tool", p.ToolName, "path", path)

	result := h.checker.CheckFiles(ctx, []string{path}, false).
		Filter(issue.ParseLevel(h.settings.ReportLevel))

	display := h.DisplayPath(path)
	snap := h.tracker.Update(path, result.ErrorCount(), result.WarningCount())

	if result.Clean() {
		if !h.settings.ShowClean {
			return Continue()
		}
		fb, _ := h.renderer.Render(result, display, snap)
		return Result{Action: ActionContinue, UserMessage: fb.Message, UserMessageLevel: fb.Level.String()}
	}

	fb, ok := h.renderer.Render(result, display, snap)
	if !ok {
		return Continue()
	}

	message := fb.Message
	if h.renderer.ShouldShowDetails(result) {
		message += "\n" + h.renderer.Details(result)
	}

	if !h.settings.AutoInject {
		return Result{Action: ActionContinue, UserMessage: message, UserMessageLevel: fb.Level.String()}
	}
	return Result{
		Action:               ActionInjectContext,
		UserMessage:          message,
		UserMessageLevel:     fb.Level.String(),
		ContextInjection:     h.renderer.Digest(result, display),
		ContextInjectionRole: RoleSystem,
	}
}

// Matches reports whether path matches one of the hook file patterns, by base
// name or by full path
func (h *Handler) Matches(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range h.settings.FilePatterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// DisplayPath shortens path for messages: relative to the working directory
// when below it, otherwise relative to the home directory, otherwise the base name
func (h *Handler) DisplayPath(path string) string {
	base := filepath.Base(path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return base
	}

	if cwd, cwdErr := h.getwd(); cwdErr == nil {
		if rel, ok := below(cwd, abs); ok {
			return rel
		}
	}
	if home, homeErr := h.homeDir(); homeErr == nil && home != "" {
		if rel, ok := below(home, abs); ok {
			return "~/" + rel
		}
	}
	return base
}

// below returns target relative to root when target is inside root
func below(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Metadata describes the mounted hook and its effective settings
type Metadata struct {
	Name     string              `json:"name"`
	Version  string              `json:"version"`
	Provides []string            `json:"provides"`
	Events   []string            `json:"events"`
	Config   config.HookSettings `json:"config"`
}

// Metadata returns the hook's identity and settings
func (h *Handler) Metadata() Metadata {
	return Metadata{
		Name:     ModuleName,
		Version:  ModuleVersion,
		Provides: []string{"python_check_hook"},
		Events:   []string{EventToolPost},
		Config:   h.settings,
	}
}
