package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/ir"
	"github.com/roach88/satset/internal/store"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database string
	Declare  []string // name=kind[:unit]
}

// RecordedReading is one appended reading.
type RecordedReading struct {
	Variable string `json:"variable"`
	Value    string `json:"value"`
	Seq      int64  `json:"seq"`
}

// RecordResult lists the readings appended by one invocation.
type RecordResult struct {
	Declared []string          `json:"declared,omitempty"`
	Readings []RecordedReading `json:"readings"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record name=value...",
		Short: "Append readings to the readings database",
		Long: `Append readings to a SQLite readings database.

Undeclared variables are declared with the kind of their first value;
use --declare to fix the kind (and unit) up front. Values are coerced to
the declared kind: an int reading of a float variable is stored as float.

Examples:
  satset record --db readings.db temperature=21.5 door_open=false
  satset record --db readings.db --declare level=float:cm level=4`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "readings database (defaults to the configured database)")
	cmd.Flags().StringArrayVar(&opts.Declare, "declare", nil, "declare a variable as name=kind[:unit] (repeatable)")

	return cmd
}

func runRecord(opts *RecordOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	database := opts.Database
	if database == "" {
		database = opts.Config.Database
	}
	if database == "" {
		return outputCommandError(formatter, ErrCodeBadArgument, "--db is required (or set database in satset.yaml)")
	}

	// Parse everything before touching the database
	decls := make([]ir.VariableSpec, 0, len(opts.Declare))
	for _, d := range opts.Declare {
		spec, err := parseDeclaration(d)
		if err != nil {
			return outputCommandError(formatter, ErrCodeBadArgument, err.Error())
		}
		decls = append(decls, spec)
	}
	type assignment struct {
		name  string
		value ir.Value
	}
	assignments := make([]assignment, 0, len(args))
	for _, arg := range args {
		name, value, err := parseAssignment(arg)
		if err != nil {
			return outputCommandError(formatter, ErrCodeBadArgument, err.Error())
		}
		assignments = append(assignments, assignment{name, value})
	}

	st, err := store.Open(database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := RecordResult{Readings: make([]RecordedReading, 0, len(assignments))}
	for _, spec := range decls {
		if err := st.WriteVariable(ctx, spec); err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
		result.Declared = append(result.Declared, spec.Name)
	}
	for _, a := range assignments {
		seq, err := st.WriteReading(ctx, a.name, a.value)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
		slog.Debug("reading recorded", "variable", a.name, "seq", seq, "trace_id", formatter.TraceID)
		result.Readings = append(result.Readings, RecordedReading{
			Variable: a.name,
			Value:    ir.FormatValue(a.value),
			Seq:      seq,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, r := range result.Readings {
		fmt.Fprintf(formatter.Writer, "recorded %s=%s (seq %d)\n", r.Variable, r.Value, r.Seq)
	}
	return nil
}

// parseDeclaration parses name=kind[:unit].
func parseDeclaration(s string) (ir.VariableSpec, error) {
	name, rest, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return ir.VariableSpec{}, fmt.Errorf("invalid declaration %q: want name=kind[:unit]", s)
	}
	kindText, unit, _ := strings.Cut(rest, ":")
	kind, err := ir.ParseKind(kindText)
	if err != nil {
		return ir.VariableSpec{}, fmt.Errorf("invalid declaration %q: %w", s, err)
	}
	return ir.VariableSpec{Name: name, Kind: kind, Unit: strings.TrimSpace(unit)}, nil
}
