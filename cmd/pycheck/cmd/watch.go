package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-pycheck/internal/hook"
	"github.com/mrz1836/go-pycheck/internal/watch"
)

// BuildWatchCmd creates the watch command
func (cb *CommandBuilder) BuildWatchCmd() *cobra.Command {
	var settingsPath string

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Check Python files as they change",
		Long: `Watches the given directories (default: current directory) and runs the
post-write hook on every Python file that is created or modified, printing
the hook's feedback. Repeated identical results for a file are suppressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cb.app
			f := app.formatter()

			handler := hook.NewHandler(cb.loadHookConfig(settingsPath), hook.Options{
				Parallel: app.config.Parallel,
				Logger:   app.logger,
			})

			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}

			w, err := watch.New(dirs, handler, func(path string, r hook.Result) {
				f.Feedback(r.UserMessageLevel, r.UserMessage)
				if r.ContextInjection != "" {
					app.logger.Debug("agent context", "path", path, "text", r.ContextInjection)
				}
			}, watch.Options{Logger: app.logger})
			if err != nil {
				return err
			}

			f.Info("Watching %s for Python changes (Ctrl+C to stop)", strings.Join(dirs, ", "))
			if err = w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			f.Success("Stopped watching %s", strings.Join(dirs, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "YAML file with hook settings")
	return cmd
}
