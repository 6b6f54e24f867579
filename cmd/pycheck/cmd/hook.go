package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/hook"
)

// loadHookConfig resolves the config and layers the hook settings file on top
func (cb *CommandBuilder) loadHookConfig(settingsPath string) *config.Config {
	cfg := cb.app.loadConfig(nil)
	if settingsPath == "" {
		return cfg
	}

	settings, err := hook.LoadSettings(settingsPath, cfg.Hook)
	if err != nil {
		cb.app.logger.Warn("ignoring hook settings file", "path", settingsPath, "error", err)
		return cfg
	}
	cfg.Hook = settings
	return cfg
}

// BuildHookCmd creates the hook command
func (cb *CommandBuilder) BuildHookCmd() *cobra.Command {
	var (
		settingsPath string
		event        string
		metadata     bool
	)

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Check a just-written Python file from a host tool event",
		Long: `Reads one post-tool event as JSON from stdin, checks the written file
when it is a Python file, and prints the hook result as JSON.

Payload: {"tool_name": "write_file", "tool_input": {"file_path": "src/app.py"}}

Malformed payloads pass through with {"action": "continue"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := cb.app
			handler := hook.NewHandler(cb.loadHookConfig(settingsPath), hook.Options{
				Parallel: app.config.Parallel,
				Logger:   app.logger,
			})

			if metadata {
				return app.writeJSON(handler.Metadata())
			}

			data, err := io.ReadAll(app.stdin)
			if err != nil {
				return fmt.Errorf("cannot read hook payload: %w", err)
			}

			payload, err := hook.ParsePayload(data)
			if err != nil {
				app.logger.Debug("passing through unreadable payload", "error", err)
				return app.writeJSON(hook.Continue())
			}

			name := event
			if payload.Event != "" && !cmd.Flags().Changed("event") {
				name = payload.Event
			}
			return app.writeJSON(handler.Handle(cmd.Context(), name, payload))
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "YAML file with hook settings")
	cmd.Flags().StringVar(&event, "event", hook.EventToolPost, "Event name reported to the hook")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Print the hook description and effective settings, then exit")
	return cmd
}
