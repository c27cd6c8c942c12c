package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
	"github.com/roach88/satset/internal/store"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Table        string
	Observe      []string // name=value
	Observations string   // YAML file
	Database     string
	Predictor    string
	Explain      bool
}

// MatchResult is the outcome of one match invocation.
type MatchResult struct {
	Table        string        `json:"table"`
	Observations string        `json:"observations"`
	Matched      bool          `json:"matched"`
	Match        string        `json:"match,omitempty"`
	Index        *int          `json:"index,omitempty"`
	Pending      []string      `json:"pending,omitempty"` // rules not yet ruled out, when nothing matched
	Rules        []RuleVerdict `json:"rules,omitempty"`
}

// RuleVerdict is the explanation of one rule.
type RuleVerdict struct {
	Name        string             `json:"name"`
	Satisfied   bool               `json:"satisfied"`
	Satisfiable bool               `json:"satisfiable"`
	Conditions  []ConditionVerdict `json:"conditions"`
}

// ConditionVerdict is the explanation of one condition.
type ConditionVerdict struct {
	Condition string `json:"condition"`
	Status    string `json:"status"`
	Observed  string `json:"observed,omitempty"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <rules-dir>",
		Short: "Find the first rule satisfied by observations",
		Long: `Evaluate a rule table against observations and print the first
rule whose conditions are all satisfied.

Observations come from, in order: the readings database (--db), a YAML
file (--observations) and --observe flags. Later sources override
earlier ones unless the duplicate policy is "reject".

No match is a result, not an error: the exit code is 0.

Examples:
  satset match ./rules --table pets --observe has_dog=true --observe cat_fraction=-10
  satset match ./rules --table pets --observations obs.yaml --explain
  satset match ./rules --db readings.db --predictor linear`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "rule table name (optional if the directory defines one table)")
	cmd.Flags().StringArrayVar(&opts.Observe, "observe", nil, "observation name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Observations, "observations", "", "YAML file of observations")
	cmd.Flags().StringVar(&opts.Database, "db", "", "readings database (defaults to the configured database)")
	cmd.Flags().StringVar(&opts.Predictor, "predictor", "last", "trend predictor (last|linear)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "show every rule's conditions")

	return cmd
}

func runMatch(opts *MatchOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	predictor, err := engine.ParsePredictor(opts.Predictor)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadArgument, err.Error())
	}

	table, loadErr := loadTable(rulesDir, opts.Table)
	if loadErr != nil {
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	if errs := compiler.Validate(&table); len(errs) > 0 {
		return outputCommandError(formatter, errs[0].Code, fmt.Sprintf("table %s: %s", table.Name, errs[0].Error()))
	}

	reg := engine.NewRegistry()
	rules, err := engine.RuleListFromTable(reg, table)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Loaded table %s with %d rule(s)", table.Name, rules.Len())

	obs, code, err := buildObservations(cmd.Context(), opts, reg, predictor)
	if err != nil {
		return outputCommandError(formatter, code, err.Error())
	}
	formatter.VerboseLog("Observations: %s", obs)

	result := MatchResult{
		Table:        table.Name,
		Observations: obs.String(),
	}

	if opts.Explain {
		verdicts, err := rules.Explain(obs)
		if err != nil {
			return outputEvaluationError(formatter, err)
		}
		result.Rules = make([]RuleVerdict, len(verdicts))
		for i, v := range verdicts {
			result.Rules[i] = ruleVerdict(v)
		}
	}

	m, ok, err := rules.Match(obs)
	if err != nil {
		return outputEvaluationError(formatter, err)
	}
	if ok {
		idx := m.Index
		result.Matched = true
		result.Match = m.Set.Name()
		result.Index = &idx
	} else {
		pending, err := rules.Pending(obs)
		if err != nil {
			return outputEvaluationError(formatter, err)
		}
		for _, i := range pending {
			result.Pending = append(result.Pending, rules.At(i).Name())
		}
	}

	slog.Debug("match finished",
		"table", table.Name,
		"matched", result.Matched,
		"rule", result.Match,
		"trace_id", formatter.TraceID,
	)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputMatchText(formatter, result)
	return nil
}

// buildObservations collects observations from every source. The returned
// code classifies a failure.
func buildObservations(ctx context.Context, opts *MatchOptions, reg *engine.Registry, predictor engine.Predictor) (*engine.ObservationSet, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	policy := opts.Config.Policy()
	capacity := opts.historyCapacity()

	var set *engine.ObservationSet
	clock := engine.NewClock()

	database := opts.Database
	if database == "" {
		database = opts.Config.Database
	}
	if database != "" {
		st, err := store.Open(database)
		if err != nil {
			return nil, ErrCodeStore, fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		set, err = st.Observations(ctx, reg, capacity, predictor, engine.WithDuplicatePolicy(policy))
		if err != nil {
			return nil, ErrCodeStore, fmt.Errorf("failed to read observations: %w", err)
		}
		last, err := st.MaxSeq(ctx)
		if err != nil {
			return nil, ErrCodeStore, fmt.Errorf("failed to read observations: %w", err)
		}
		clock = engine.NewClockAt(last)
	} else {
		set = engine.NewObservationSet(engine.WithDuplicatePolicy(policy))
	}

	b := &observationBuilder{reg: reg, set: set, capacity: capacity, predictor: predictor, clock: clock}
	if opts.Observations != "" {
		if err := b.addFile(opts.Observations); err != nil {
			return nil, ErrCodeBadArgument, err
		}
	}
	if err := b.addAssignments(opts.Observe); err != nil {
		return nil, ErrCodeBadArgument, err
	}
	return set, "", nil
}

func ruleVerdict(v engine.Verdict) RuleVerdict {
	rv := RuleVerdict{
		Name:        v.Set.Name(),
		Satisfied:   v.Satisfied,
		Satisfiable: v.Satisfiable,
		Conditions:  make([]ConditionVerdict, len(v.Conditions)),
	}
	for i, c := range v.Conditions {
		cv := ConditionVerdict{
			Condition: c.Condition.String(),
			Status:    c.Status.String(),
		}
		if c.Observed != nil {
			cv.Observed = ir.FormatValue(c.Observed)
		}
		rv.Conditions[i] = cv
	}
	return rv
}

// outputMatchText renders a match result:
//
//	table: pets
//	observations: {cat_fraction=-10, has_dog=true}
//	match: calm
func outputMatchText(formatter *OutputFormatter, result MatchResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "table: %s\n", result.Table)
	fmt.Fprintf(w, "observations: %s\n", result.Observations)
	if result.Matched {
		fmt.Fprintf(w, "match: %s\n", result.Match)
	} else {
		fmt.Fprintln(w, "no match")
	}

	if len(result.Rules) == 0 {
		return
	}
	fmt.Fprintln(w, "rules:")
	for i, r := range result.Rules {
		state := "ruled out"
		switch {
		case r.Satisfied:
			state = "satisfied"
		case r.Satisfiable:
			state = "satisfiable"
		}
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, r.Name, state)
		for _, c := range r.Conditions {
			if c.Observed != "" {
				fmt.Fprintf(w, "       %s: %s (observed %s)\n", c.Condition, c.Status, c.Observed)
			} else {
				fmt.Fprintf(w, "       %s: %s\n", c.Condition, c.Status)
			}
		}
	}
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputEvaluationError reports a failed evaluation (exit code 1).
func outputEvaluationError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeEvaluation, err.Error(), nil)
	return WrapExitError(ExitFailure, "evaluation failed", err)
}
