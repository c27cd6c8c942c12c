package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/config"
	"github.com/roach88/satset/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config is the resolved configuration with flags applied.
	Config config.Config

	// TraceIDs generates the trace_id of JSON responses.
	// If nil, defaults to UUIDv7IDs.
	TraceIDs IDGenerator
}

// NewRootOptions returns options holding the default configuration.
func NewRootOptions() *RootOptions {
	cfg := config.Default()
	return &RootOptions{
		Format: cfg.Format,
		Config: cfg,
	}
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the satset CLI.
func NewRootCommand() *cobra.Command {
	opts := NewRootOptions()

	cmd := &cobra.Command{
		Use:     "satset",
		Short:   "satset - typed condition satisfaction",
		Long:    "Evaluate ordered rule tables of typed conditions against observed values.",
		Version: fmt.Sprintf("%s (rule tables v%s)", ir.EngineVersion, ir.IRVersion),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./satset.yaml if present)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the config file and environment, then lets explicitly set
// flags override them.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	loadOpts := config.Options{File: o.ConfigFile}
	if o.ConfigFile == "" {
		loadOpts.SearchPaths = []string{"."}
	}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.Format
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}

	if !isValidFormat(cfg.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats))
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose
	return nil
}

// historyCapacity returns the configured readings kept per observation.
func (o *RootOptions) historyCapacity() int {
	return max(o.Config.HistoryCapacity, 1)
}

// setupLogging installs a text slog handler on w: debug level when verbose,
// warnings only otherwise.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
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
