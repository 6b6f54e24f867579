// Package watch feeds Python file writes under a set of directories into the
// post-write hook, the way a host tool would after writing each file
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/mrz1836/go-pycheck/internal/files"
	"github.com/mrz1836/go-pycheck/internal/hook"
)

// ToolName is reported as the writing tool in synthesized hook payloads
const ToolName = "write_file"

// DefaultDebounce is how long a burst of events is collected before checking
const DefaultDebounce = 200 * time.Millisecond

// DefaultIgnoreDirs are directory base names that are never watched
var DefaultIgnoreDirs = []string{ //nolint:gochecknoglobals // read-only defaults
	".git",
	".venv",
	"venv",
	"__pycache__",
	"node_modules",
	".mypy_cache",
	".ruff_cache",
	".pytest_cache",
	"*.egg-info",
}

// Handler receives one synthesized post-write event
type Handler interface {
	Handle(ctx context.Context, event string, p hook.Payload) hook.Result
}

// ResultFunc receives the hook outcome for a changed file
type ResultFunc func(path string, result hook.Result)

// Options configures a Watcher
type Options struct {
	Debounce   time.Duration
	IgnoreDirs []string
	Logger     *slog.Logger
}

// Watcher watches directories recursively and runs the hook on changed Python files
type Watcher struct {
	watcher    *fsnotify.Watcher
	handler    Handler
	onResult   ResultFunc
	debounce   time.Duration
	ignoreDirs []string
	logger     *slog.Logger

	closeOnce sync.Once
}

// New creates a watcher and registers every directory below roots.
// Events are only delivered once Run is called.
func New(roots []string, handler Handler, onResult ResultFunc, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.IgnoreDirs == nil {
		opts.IgnoreDirs = DefaultIgnoreDirs
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fw,
		handler:    handler,
		onResult:   onResult,
		debounce:   opts.Debounce,
		ignoreDirs: opts.IgnoreDirs,
		logger:     opts.Logger,
	}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// WatchList returns the directories currently watched
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		_ = w.watcher.Close()
	})
}

// Run delivers events until ctx is done or the watcher is closed. Pending
// changes are dropped on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			path, changed := w.accept(event)
			if !changed {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timer, timerC = nil, nil
			w.flush(ctx, pending)
			clear(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// accept reports whether event is a Python file change worth checking.
// Newly created directories are added to the watch list.
func (w *Watcher) accept(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if addErr := w.addRecursive(event.Name); addErr != nil {
				w.logger.Debug("cannot watch new directory", "path", event.Name, "error", addErr)
			}
		}
		return "", false
	}

	if !files.IsPython(event.Name) {
		return "", false
	}
	return event.Name, true
}

// flush runs the hook for each pending path in name order
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		result := w.handler.Handle(ctx, hook.EventToolPost, hook.Payload{
			Event:     hook.EventToolPost,
			ToolName:  ToolName,
			ToolInput: hook.ToolInput{FilePath: path},
		})
		w.logger.Debug("checked changed file", "path", path, "action", result.Action)
		if w.onResult != nil {
			w.onResult(path, result)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("cannot watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			return fmt.Errorf("cannot watch %s: %w", path, addErr)
		}
		return nil
	})
}

func (w *Watcher) ignored(name string) bool {
	for _, pattern := range w.ignoreDirs {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
