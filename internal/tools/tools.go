// Package tools locates the external Python tools and runs them under a deadline
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
)

// Tool describes an external executable pycheck depends on
type Tool struct {
	Name        string
	Binary      string
	InstallHint string
}

// Known tool names
const (
	Ruff    = "ruff"
	Pyright = "pyright"
)

//nolint:gochecknoglobals // Tool registry requires package-level state
var (
	toolsMu sync.RWMutex
	tools   = map[string]*Tool{
		Ruff: {
			Name:        Ruff,
			Binary:      "ruff",
			InstallHint: "uv add ruff",
		},
		Pyright: {
			Name:        Pyright,
			Binary:      "pyright",
			InstallHint: "uv add pyright",
		},
	}

	// resolvedPaths caches successful lookups keyed by the configured binary
	resolvedPaths = make(map[string]string)
	resolveMu     sync.Mutex
)

// Get returns a copy of the registered tool
func Get(name string) (Tool, error) {
	toolsMu.RLock()
	defer toolsMu.RUnlock()

	t, ok := tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", prerrors.ErrUnknownTool, name)
	}
	return *t, nil
}

// MustGet is Get for the built-in tool names; it panics on an unknown name
func MustGet(name string) Tool {
	t, err := Get(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the registered tool names, sorted
func Names() []string {
	toolsMu.RLock()
	defer toolsMu.RUnlock()

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve finds the executable for binary, which may be a bare name searched in
// PATH or an explicit path. Only successful lookups are cached, so a tool
// installed mid-session is picked up on the next call.
func Resolve(binary string) (string, error) {
	resolveMu.Lock()
	if path, ok := resolvedPaths[binary]; ok {
		resolveMu.Unlock()
		return path, nil
	}
	resolveMu.Unlock()

	path, err := exec.LookPath(binary)
	if err != nil {
		return "", err
	}

	resolveMu.Lock()
	resolvedPaths[binary] = path
	resolveMu.Unlock()

	return path, nil
}

// IsInstalled reports whether the tool can be found, using binary in place of
// the default executable when set
func IsInstalled(name, binary string) bool {
	t, err := Get(name)
	if err != nil {
		return false
	}
	if binary == "" {
		binary = t.Binary
	}
	_, err = Resolve(binary)
	return err == nil
}

// CleanCache clears the resolved path cache
func CleanCache() {
	resolveMu.Lock()
	resolvedPaths = make(map[string]string)
	resolveMu.Unlock()
}

// waitDelay bounds how long Exec waits for output pipes after the process is
// killed. Launchers such as pyright's leave children holding them open.
const waitDelay = 2 * time.Second

// Command is one bounded invocation of an external tool
type Command struct {
	Tool Tool
	// Binary overrides Tool.Binary, usually from the tools section of the config
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result is the captured output of a finished command.
// A non-zero ExitCode is normal: the Python tools report findings that way.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns stdout and stderr joined
func (r *Result) Output() string {
	return r.Stdout + r.Stderr
}

// Exec runs the command and waits for it. The returned error is a *errors.CheckError
// wrapping ErrToolNotFound when the executable cannot be found or started, or
// ErrToolTimeout when the deadline passes.
func Exec(ctx context.Context, cmd Command, logger *slog.Logger) (*Result, error) {
	if ctx == nil {
		return nil, prerrors.ErrNilContext
	}
	if logger == nil {
		logger = slog.Default()
	}

	binary := cmd.Binary
	if binary == "" {
		binary = cmd.Tool.Binary
	}

	path, err := Resolve(binary)
	if err != nil {
		logger.Debug("tool lookup failed", "tool", cmd.Tool.Name, "binary", binary, "error", err)
		return nil, prerrors.NewToolNotFoundError(cmd.Tool.Name, cmd.Tool.InstallHint)
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, path, cmd.Args...) //nolint:gosec // binary comes from trusted config
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	killProcessGroup(c)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Debug("running tool", "tool", cmd.Tool.Name, "command", path+" "+strings.Join(cmd.Args, " "))

	start := time.Now()
	if startErr := c.Start(); startErr != nil {
		logger.Debug("tool failed to start", "tool", cmd.Tool.Name, "error", startErr)
		return nil, prerrors.NewToolNotFoundError(cmd.Tool.Name, cmd.Tool.InstallHint)
	}
	waitErr := c.Wait()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, prerrors.NewToolTimeoutError(cmd.Tool.Name, result.Output(), cmd.Timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s interrupted: %w", cmd.Tool.Name, ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("%s failed: %w", cmd.Tool.Name, waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	logger.Debug("tool finished", "tool", cmd.Tool.Name, "exit_code", result.ExitCode, "duration", result.Duration)
	return result, nil
}
