// Package cmd implements the pycheck command line
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-pycheck/internal/config"
	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
	"github.com/mrz1836/go-pycheck/internal/output"
)

// ExitUsage is returned when no result was produced: bad flags, bad input or I/O failures
const ExitUsage = 2

// CLIApp holds the application state and configuration
type CLIApp struct {
	version   string
	commit    string
	buildDate string
	config    *AppConfig

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger   *slog.Logger
	exitCode int
}

// AppConfig holds global application configuration
type AppConfig struct {
	Verbose    bool
	NoColor    bool
	ColorMode  string // "auto", "always", "never"
	Parallel   bool
	ConfigPath string
}

// NewCLIApp creates a new CLI application instance bound to the process streams
func NewCLIApp(version, commit, buildDate string) *CLIApp {
	return &CLIApp{
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		config:    &AppConfig{},
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		logger:    slog.Default(),
	}
}

// SetIO replaces the process streams, for tests and embedding
func (a *CLIApp) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	a.stdin = stdin
	a.stdout = stdout
	a.stderr = stderr
}

// formatter builds the output formatter from the color flags
func (a *CLIApp) formatter() *output.Formatter {
	enabled := false
	if !a.config.NoColor {
		mode, _ := output.ParseColorMode(a.config.ColorMode)
		enabled = output.ShouldUseColor(mode)
	}
	return output.New(output.Options{ColorEnabled: enabled, Out: a.stdout, Err: a.stderr})
}

// loadConfig resolves the check configuration with the given overrides
func (a *CLIApp) loadConfig(overrides *config.Overrides) *config.Config {
	return config.Load(config.LoadOptions{
		ConfigPath: a.config.ConfigPath,
		Overrides:  overrides,
		Logger:     a.logger,
	})
}

// writeJSON prints v as indented JSON on stdout
func (a *CLIApp) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("cannot write output: %w", err)
	}
	return nil
}

// CommandBuilder creates cobra commands with dependency injection
type CommandBuilder struct {
	app *CLIApp
}

// NewCommandBuilder creates a new command builder
func NewCommandBuilder(app *CLIApp) *CommandBuilder {
	return &CommandBuilder{app: app}
}

// BuildRootCmd creates the root command, which checks the given paths
func (cb *CommandBuilder) BuildRootCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "pycheck [paths...]",
		Short: "Check Python code quality with ruff and pyright",
		Long: `pycheck runs formatting checks, linting, type checking and stub detection
on the given paths (files or directories) and reports every finding in one
normalized list. Paths default to the current directory.

Exit codes:
  0  no issues
  1  warnings only
  2  errors, or the command could not run`,
		Example: `  pycheck src/                  # Check a directory
  pycheck src/main.py tests/    # Check specific paths
  pycheck --fix src/            # Auto-fix issues
  pycheck --format json src/    # JSON output for CI
  pycheck --staged              # Check Python files staged for commit`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cb.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cb.runCheck(cmd, args, opts)
		},
	}

	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", cb.app.version, cb.app.commit, cb.app.buildDate)
	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	cmd.PersistentFlags().Bool("verbose", false, "Enable debug logging on stderr")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output (same as --color=never)")
	cmd.PersistentFlags().String("color", "auto", "Control color output: auto, always, never")
	cmd.PersistentFlags().Bool("parallel", false, "Run the enabled checks concurrently")
	cmd.PersistentFlags().String("config", "", "Path to pyproject.toml")

	opts.register(cmd)
	return cmd
}

// initConfig copies the persistent flags into the app config and installs the logger
func (cb *CommandBuilder) initConfig(cmd *cobra.Command) error {
	cfg := cb.app.config
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	cfg.NoColor, _ = cmd.Flags().GetBool("no-color")
	cfg.ColorMode, _ = cmd.Flags().GetString("color")
	cfg.Parallel, _ = cmd.Flags().GetBool("parallel")
	cfg.ConfigPath, _ = cmd.Flags().GetString("config")

	if _, ok := output.ParseColorMode(cfg.ColorMode); !ok {
		return fmt.Errorf("%w: --color must be auto, always or never, got %q", prerrors.ErrInvalidArgument, cfg.ColorMode)
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("%w: %s", prerrors.ErrPathNotFound, cfg.ConfigPath)
		}
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	cb.app.logger = slog.New(slog.NewTextHandler(cb.app.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// Build assembles the root command and its subcommands
func (cb *CommandBuilder) Build() *cobra.Command {
	rootCmd := cb.BuildRootCmd()
	rootCmd.AddCommand(cb.BuildHookCmd())
	rootCmd.AddCommand(cb.BuildToolCmd())
	rootCmd.AddCommand(cb.BuildWatchCmd())
	return rootCmd
}

// Run executes the command line and returns the process exit code. Check
// commands report the result's exit code; anything that fails before a
// result exists exits with ExitUsage.
func (cb *CommandBuilder) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cb.Build()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(cb.app.stdin)
	rootCmd.SetOut(cb.app.stdout)
	rootCmd.SetErr(cb.app.stderr)

	cb.app.exitCode = 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cb.app.formatter().Error("%v", err)
		return ExitUsage
	}
	return cb.app.exitCode
}
