package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/harness"
	"github.com/roach88/satset/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <rules-dir> <scenarios-dir>",
		Short: "Run scenario tests against rule tables",
		Long: `Run YAML scenarios against the rule tables in rules-dir.

Each scenario feeds observations step by step and checks the matching
rule and the satisfied/satisfiable rules after every step. When
scenarios-dir/golden/<name>.golden exists, the scenario report must
match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  satset test ./rules ./scenarios
  satset test ./rules ./scenarios --filter "pets-*"
  satset test ./rules ./scenarios --update
  satset test ./rules ./scenarios --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, rulesDir, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	loaded, loadErrors := LoadTables(rulesDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load rule tables", loadErrors[0])
	}
	formatter.VerboseLog("Loaded %d rule table(s) from %s", len(loaded.Tables), rulesDir)

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	runner := scenarioRunner{tables: loaded.Tables, opts: opts}
	for _, file := range files {
		o := runner.run(file)
		if opts.Format != "json" {
			o.print(cmd.OutOrStdout())
		}
		result.Scenarios = append(result.Scenarios, o.ScenarioResult)
		if o.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles walks dir for .yaml/.yml files whose base name (without
// extension) matches filter. An empty filter matches everything.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scenarioOutcome is one scenario's result plus the text lines shown for it.
type scenarioOutcome struct {
	ScenarioResult
	label  string   // text after the check mark
	detail []string // indented lines under a failure
}

func passed(name, label string) scenarioOutcome {
	return scenarioOutcome{ScenarioResult: ScenarioResult{Name: name, Pass: true}, label: label}
}

func failed(name string, errs []string, detail ...string) scenarioOutcome {
	if detail == nil {
		detail = errs
	}
	return scenarioOutcome{
		ScenarioResult: ScenarioResult{Name: name, Errors: errs},
		label:          name,
		detail:         detail,
	}
}

func (o scenarioOutcome) print(w io.Writer) {
	mark := "✓"
	if !o.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, o.label)
	for _, line := range o.detail {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

type scenarioRunner struct {
	tables []ir.RuleTable
	opts   *TestOptions
}

// run executes one scenario file. With --update the report replaces the
// golden file; otherwise an existing golden file must match byte for byte
// and the step expectations must hold.
func (r scenarioRunner) run(file string) scenarioOutcome {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		name := filepath.Base(file)
		return failed(name,
			[]string{fmt.Sprintf("failed to load scenario: %v", err)},
			fmt.Sprintf("Load error: %v", err))
	}

	result, err := harness.Run(scenario,
		harness.WithTables(r.tables...),
		harness.WithHistoryCapacity(r.opts.historyCapacity()),
	)
	if err != nil {
		return failed(scenario.Name,
			[]string{fmt.Sprintf("execution failed: %v", err)},
			fmt.Sprintf("Execution error: %v", err))
	}
	report := harness.Report(result)
	golden := goldenFilePath(file)

	if r.opts.Update {
		if err := writeGolden(golden, report); err != nil {
			return failed(scenario.Name,
				[]string{fmt.Sprintf("failed to update golden file: %v", err)},
				fmt.Sprintf("Golden update error: %v", err))
		}
		return passed(scenario.Name, scenario.Name+" (golden updated)")
	}

	want, err := os.ReadFile(golden)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Expectations alone decide.
	case err != nil:
		return failed(scenario.Name,
			[]string{fmt.Sprintf("golden comparison failed: %v", err)},
			fmt.Sprintf("Golden comparison error: %v", err))
	case !bytes.Equal(want, report):
		return failed(scenario.Name,
			[]string{"report does not match golden file"},
			"Golden file mismatch (run with --update to regenerate)")
	}

	if !result.Pass {
		return failed(scenario.Name, result.Errors)
	}
	return passed(scenario.Name, scenario.Name)
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, report []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, report, 0o644)
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed == 0 {
		return formatter.encodeIndented(response)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	response.Status = "error"
	response.Error = &CLIError{Code: "E_TEST_FAILED", Message: msg}
	if err := formatter.encodeIndented(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
