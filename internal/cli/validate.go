package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Tables int                        `json:"tables"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Validate rule tables",
		Long: `Validate the CUE rule tables in a directory.

Compiles every table and checks kinds, operators, bounds and variable
references. All problems are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, loadErrors := LoadTables(rulesDir, LoadModeCollectAll)
	if loaded == nil {
		return loadFailure(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)

	// Compile errors first, in source order, then table-level checks
	var problems []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			continue
		}
		v := compiler.ValidationError{Field: "load", Message: loadErr.Message, Code: loadErr.Code}
		if loadErr.Pos.IsValid() {
			v.Line = loadErr.Pos.Line()
		}
		problems = append(problems, v)
	}
	problems = append(problems, validateTables(loaded.Tables, formatter)...)

	if len(problems) > 0 {
		return outputValidationErrors(formatter, problems)
	}
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Tables: len(loaded.Tables)})
	}
	n := len(loaded.Tables)
	fmt.Fprintf(formatter.Writer, "✓ All rule tables valid (%d %s)\n", n, plural(n, "table", "tables"))
	return nil
}

// validateTables runs the compiler's table checks. Fields are prefixed
// with the table name.
func validateTables(tables []ir.RuleTable, formatter *OutputFormatter) []compiler.ValidationError {
	var allErrors []compiler.ValidationError
	for i := range tables {
		formatter.VerboseLog("Validating table: %s", tables[i].Name)
		for _, e := range compiler.Validate(&tables[i]) {
			e.Field = "table." + tables[i].Name + "." + e.Field
			allErrors = append(allErrors, e)
		}
	}
	return allErrors
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encodeIndented(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateRulesDir validates all rule tables in a directory.
// This is a helper function for external callers.
func ValidateRulesDir(rulesDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadTables(rulesDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	if len(loadErrors) > 0 {
		return nil, errors.Join(loadErrors...)
	}

	silentFormatter := &OutputFormatter{Format: "text", Verbose: false, Writer: io.Discard}
	return validateTables(loadResult.Tables, silentFormatter), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
