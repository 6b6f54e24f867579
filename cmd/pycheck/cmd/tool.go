package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-pycheck/internal/checks"
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/runner"
	"github.com/mrz1836/go-pycheck/internal/tool"
	"github.com/mrz1836/go-pycheck/internal/tools"
)

// toolDescription is printed by tool --describe
type toolDescription struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	Metadata    tool.Metadata  `json:"metadata"`
	Checks      []checkStatus  `json:"checks"`
	Tools       []toolStatus   `json:"tools"`
}

// checkStatus is one check and whether the resolved config runs it
type checkStatus struct {
	checks.CheckMetadata
	Enabled bool `json:"enabled"`
}

// toolStatus reports whether an external tool can be found
type toolStatus struct {
	Name        string `json:"name"`
	Binary      string `json:"binary"`
	Installed   bool   `json:"installed"`
	InstallHint string `json:"install_hint,omitempty"`
}

// describe collects the tool description along with check and tool availability
func (cb *CommandBuilder) describe(t *tool.Tool, cfg *config.Config) toolDescription {
	desc := toolDescription{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Metadata:    t.Metadata(),
	}

	for _, md := range runner.NewRegistry(cfg, cb.app.logger).GetAllMetadata() {
		desc.Checks = append(desc.Checks, checkStatus{CheckMetadata: md, Enabled: cfg.Enabled(md.Kind)})
	}

	for _, name := range tools.Names() {
		info, err := tools.Get(name)
		if err != nil {
			continue
		}
		binary := toolBinary(cfg, name)
		desc.Tools = append(desc.Tools, toolStatus{
			Name:        name,
			Binary:      binary,
			Installed:   tools.IsInstalled(name, binary),
			InstallHint: info.InstallHint,
		})
	}
	return desc
}

// toolBinary returns the configured executable for a tool
func toolBinary(cfg *config.Config, name string) string {
	switch name {
	case tools.Ruff:
		return cfg.Tools.RuffPath
	case tools.Pyright:
		return cfg.Tools.PyrightPath
	default:
		return ""
	}
}

// BuildToolCmd creates the tool command
func (cb *CommandBuilder) BuildToolCmd() *cobra.Command {
	var describe bool

	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Run the python_check agent tool on a JSON request",
		Long: `Reads one python_check request as JSON from stdin, runs the requested checks
and prints the response as JSON. An empty request checks the current directory.

Request: {"paths": ["src/"], "fix": false, "checks": ["lint", "types"]}
     or: {"content": "def foo():\n    pass"}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := cb.app
			cfg := app.loadConfig(nil)
			t := tool.New(cfg, app.config.Parallel, app.logger)

			if describe {
				return app.writeJSON(cb.describe(t, cfg))
			}

			data, err := io.ReadAll(app.stdin)
			if err != nil {
				return fmt.Errorf("cannot read tool request: %w", err)
			}

			req, err := t.ParseRequest(data)
			if err != nil {
				return err
			}

			resp, err := t.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err = app.writeJSON(resp); err != nil {
				return err
			}
			app.exitCode = resp.ExitCode()
			return nil
		},
	}

	cmd.Flags().BoolVar(&describe, "describe", false, "Print the tool description, input schema, checks and tool availability, then exit")
	return cmd
}
