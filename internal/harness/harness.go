package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
	"github.com/roach88/satset/internal/testutil"
)

// DefaultHistoryCapacity bounds the readings kept per observation when no
// WithHistoryCapacity option is given.
const DefaultHistoryCapacity = 8

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	tables   map[string]ir.RuleTable
	capacity int
	clock    engine.Sequencer
}

// WithTables makes compiled rule tables available to scenarios that name
// one in their table field.
func WithTables(tables ...ir.RuleTable) Option {
	return func(c *runConfig) {
		for _, t := range tables {
			c.tables[t.Name] = t
		}
	}
}

// WithHistoryCapacity sets how many readings each observation keeps.
func WithHistoryCapacity(n int) Option {
	return func(c *runConfig) {
		c.capacity = n
	}
}

// WithClock replaces the per-run deterministic clock.
func WithClock(clock engine.Sequencer) Option {
	return func(c *runConfig) {
		c.clock = clock
	}
}

// harness holds the state of one scenario run.
type harness struct {
	scenario  *Scenario
	rules     *engine.RuleList
	reg       *engine.Registry
	obs       *engine.ObservationSet
	predictor engine.Predictor
	capacity  int
	clock     engine.Sequencer
}

// Run executes a scenario and returns the result.
//
// Every run gets a fresh registry, observation set and clock, so running
// the same scenario twice yields identical results.
//
// Execution flow:
// 1. Resolve the rule table (named or inline) and validate it
// 2. For each step, add its observations and evaluate every rule
// 3. Compare the evaluation against the step's expect clause
//
// An error is returned only when the scenario cannot run at all (unknown
// table, invalid table); expectation failures are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		tables:   make(map[string]ir.RuleTable),
		capacity: DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = testutil.NewDeterministicClock()
	}

	table, err := resolveTable(scenario, cfg.tables)
	if err != nil {
		return nil, err
	}

	reg := engine.NewRegistry()
	rules, err := engine.RuleListFromTable(reg, table)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	predictor, err := engine.ParsePredictor(scenario.Predictor)
	if err != nil {
		return nil, err
	}
	policy, err := engine.ParseDuplicatePolicy(scenario.Duplicates)
	if err != nil {
		return nil, err
	}

	h := &harness{
		scenario:  scenario,
		rules:     rules,
		reg:       reg,
		obs:       engine.NewObservationSet(engine.WithDuplicatePolicy(policy)),
		predictor: predictor,
		capacity:  cfg.capacity,
		clock:     cfg.clock,
	}

	result := NewResult()
	result.Scenario = scenario.Name
	result.Table = table.Name
	result.Rules = rules.Len()

	for i, step := range scenario.Steps {
		sr := h.executeStep(i+1, step)
		result.Steps = append(result.Steps, sr)
		for _, msg := range checkExpect(sr, step.Expect) {
			result.AddError(fmt.Sprintf("step %d: %s", sr.Index, msg))
		}
	}

	return result, nil
}

// resolveTable returns the named or inline table, validated.
func resolveTable(s *Scenario, tables map[string]ir.RuleTable) (ir.RuleTable, error) {
	var table ir.RuleTable
	if s.Table != "" {
		t, ok := tables[s.Table]
		if !ok {
			return ir.RuleTable{}, fmt.Errorf("scenario %s: table %q not found", s.Name, s.Table)
		}
		table = t
	} else {
		t, err := s.InlineTable()
		if err != nil {
			return ir.RuleTable{}, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		table = t
	}

	if errs := compiler.Validate(&table); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return ir.RuleTable{}, fmt.Errorf("scenario %s: invalid table %s: %s", s.Name, table.Name, strings.Join(msgs, "; "))
	}
	return table, nil
}

// executeStep applies one step's observations and evaluates every rule.
// Observations are added in name order to a copy of the running set, which
// replaces it only if every observation of the step was accepted.
func (h *harness) executeStep(index int, step Step) StepResult {
	sr := StepResult{
		Index:       index,
		Seq:         h.clock.Next(),
		Satisfied:   []string{},
		Satisfiable: []string{},
	}

	names := make([]string, 0, len(step.Observe))
	for name := range step.Observe {
		names = append(names, name)
	}
	slices.Sort(names)

	next := h.obs.Clone()
	for _, name := range names {
		if err := h.observe(next, name, step.Observe[name], step.History[name], sr.Seq); err != nil {
			sr.Error = err.Error()
			sr.Observations = h.obs.String()
			return sr
		}
	}
	h.obs = next
	sr.Observations = h.obs.String()

	verdicts, err := h.rules.Explain(h.obs)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	for _, v := range verdicts {
		if v.Satisfied {
			sr.Satisfied = append(sr.Satisfied, v.Set.Name())
		}
		if v.Satisfiable {
			sr.Satisfiable = append(sr.Satisfiable, v.Set.Name())
		}
	}

	m, ok, err := h.rules.Match(h.obs)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	if ok {
		sr.Match = m.Set.Name()
	}
	return sr
}

// observe builds one observation and adds it to set.
func (h *harness) observe(set *engine.ObservationSet, name string, raw any, history []any, seq int64) error {
	value, err := ir.ValueFromAny(raw)
	if err != nil {
		return fmt.Errorf("observe %s: %w", name, err)
	}

	// WithPrior wants newest first; YAML lists them oldest first.
	prior := make([]ir.Value, len(history))
	for i, raw := range history {
		v, err := ir.ValueFromAny(raw)
		if err != nil {
			return fmt.Errorf("history %s[%d]: %w", name, i, err)
		}
		prior[len(history)-1-i] = v
	}

	// Without an explicit history a repeated variable continues the
	// readings of its previous observation.
	if len(prior) == 0 {
		if existing, ok := set.Get(name); ok {
			prior = existing.History()
		}
	}

	v, err := h.reg.Resolve(engine.ByName(name), ir.NameKind(value))
	if err != nil {
		return err
	}

	capacity := max(h.capacity, len(history)+1)
	opts := []engine.ObservationOption{
		engine.WithHistory(capacity),
		engine.WithPrior(prior...),
		engine.WithSeq(seq),
		engine.WithPredictor(h.predictor),
	}

	o, err := engine.NewObservation(v, value, opts...)
	if err != nil {
		return err
	}
	return set.Add(o)
}

// checkExpect compares a step result against its expectation.
func checkExpect(sr StepResult, expect *Expect) []string {
	var errs []string

	if sr.Error != "" {
		if expect == nil || expect.Error == "" {
			return []string{fmt.Sprintf("unexpected error: %s", sr.Error)}
		}
		if !strings.Contains(sr.Error, expect.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", expect.Error, sr.Error)}
		}
		return nil
	}
	if expect == nil {
		return nil
	}
	if expect.Error != "" {
		errs = append(errs, fmt.Sprintf("expected error containing %q, got none", expect.Error))
	}

	if expect.Match != "" {
		got := sr.Match
		if got == "" {
			got = NoMatch
		}
		if got != expect.Match {
			errs = append(errs, fmt.Sprintf("expected match %s, got %s", expect.Match, got))
		}
	}
	if expect.Satisfied != nil && !slices.Equal(expect.Satisfied, sr.Satisfied) {
		errs = append(errs, fmt.Sprintf("expected satisfied %v, got %v", expect.Satisfied, sr.Satisfied))
	}
	if expect.Satisfiable != nil && !slices.Equal(expect.Satisfiable, sr.Satisfiable) {
		errs = append(errs, fmt.Sprintf("expected satisfiable %v, got %v", expect.Satisfiable, sr.Satisfiable))
	}

	return errs
}
