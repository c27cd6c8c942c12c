package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledTable is a rule table plus its content hash.
type CompiledTable struct {
	ir.RuleTable
	Hash string `json:"hash"`
}

// CompilationResult holds the compiled rule tables.
type CompilationResult struct {
	Tables []CompiledTable `json:"tables"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules-dir>",
		Short: "Compile CUE rule tables to canonical IR",
		Long: `Compile CUE rule tables to their IR form.

Each table is validated and tagged with its content hash, so two
directories that compile to the same hash hold the same rules.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, loadErrors := LoadTables(rulesDir, LoadModeCollectAll)
	if loaded == nil {
		return loadFailure(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)

	diags := make([]diagnostic, 0, len(loadErrors))
	for _, err := range loadErrors {
		diags = append(diags, diagnosticFromError(err))
	}
	for _, v := range validateTables(loaded.Tables, formatter) {
		diags = append(diags, diagnostic{CLIError: CLIError{Code: v.Code, Message: v.Field + ": " + v.Message}})
	}
	if len(diags) > 0 {
		return outputCompileErrors(formatter, diags)
	}

	result := &CompilationResult{Tables: make([]CompiledTable, 0, len(loaded.Tables))}
	for _, table := range loaded.Tables {
		hash, err := ir.TableHash(table)
		if err != nil {
			return outputCompileErrors(formatter, []diagnostic{{
				CLIError: CLIError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing table %s: %v", table.Name, err)},
			}})
		}
		result.Tables = append(result.Tables, CompiledTable{RuleTable: table, Hash: hash})
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			err = os.WriteFile(opts.Output, data, 0o644)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d rule table(s)\n\nTables:\n", len(result.Tables))
	for _, t := range result.Tables {
		fmt.Fprintf(w, "  %s: %d variable(s), %d rule(s) [%s]\n", t.Name, len(t.Variables), len(t.Rules), t.Hash[:12])
	}
	fmt.Fprintln(w)
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", opts.Output)
	}
	return nil
}

// diagnostic is one compile problem with its CUE position, if known.
type diagnostic struct {
	CLIError
	Pos string `json:"pos,omitempty"`
}

func diagnosticFromError(err error) diagnostic {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return diagnostic{CLIError: CLIError{Code: loadErr.Code, Message: loadErr.Message}, Pos: position(loadErr.Pos)}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return diagnostic{CLIError: CLIError{Code: MapFieldToErrorCode(compileErr.Field), Message: compileErr.Message}}
	}
	return diagnostic{CLIError: CLIError{Code: ErrCodeGeneric, Message: err.Error()}}
}

// outputCompileErrors reports every diagnostic. The JSON error field holds
// the first one and data holds all of them. Exit code 2.
func outputCompileErrors(formatter *OutputFormatter, diags []diagnostic) error {
	summary := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(diags)))

	if formatter.Format == "json" {
		first := diags[0].CLIError
		if err := formatter.encodeIndented(CLIResponse{Status: "error", Error: &first, Data: diags}); err != nil {
			return err
		}
		return summary
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✗ Compilation failed\n\n")
	for _, d := range diags {
		if d.Pos != "" {
			fmt.Fprintln(w, d.Pos)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", d.Code, d.Message)
	}
	return summary
}
