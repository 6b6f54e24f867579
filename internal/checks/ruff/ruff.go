package ruff

import (
	"github.com/mrz1836/go-pycheck/internal/config"
	"github.com/mrz1836/go-pycheck/internal/tools"
)

func command(cfg *config.Config, tool tools.Tool, args []string) tools.Command {
	return tools.Command{
		Tool:    tool,
		Binary:  cfg.Tools.RuffPath,
		Args:    args,
		Timeout: cfg.Tools.Timeout,
	}
}

// excludeArgs passes the configured exclude globs through to ruff
func excludeArgs(cfg *config.Config) []string {
	args := make([]string, 0, 2*len(cfg.ExcludePatterns))
	for _, pattern := range cfg.ExcludePatterns {
		args = append(args, "--extend-exclude", pattern)
	}
	return args
}
