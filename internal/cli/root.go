// Package cli implements the calyx command line interface: running
// root invocations and queries against a durable store, inspecting
// committed flows, and compiling and testing CUE scenarios.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the calyx CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "calyx",
		Short: "Calyx - transactional actor execution engine",
		Long: "Calyx executes invocation trees over copy-on-write snapshots:\n" +
			"all-or-nothing commits, reply policies, and a durable receipt journal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// setupLogging routes slog to stderr so command output stays parseable.
// Verbose mode surfaces the engine's per-node debug records.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves the effective configuration: the --config file
// when given, defaults otherwise, with the config file's log level
// applied unless --verbose already forced debug.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, NewExitError(ExitCommandError, err.Error())
	}

	if !opts.Verbose {
		level, err := cfg.SlogLevel()
		if err != nil {
			return config.Config{}, NewExitError(ExitCommandError, err.Error())
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	return cfg, nil
}
