package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/satset/internal/ir"
)

// ConditionSet is a named, unordered group of conditions: one rule.
//
// Several conditions may constrain the same variable (e.g. a GTE+LTE pair).
// Stored order only affects String and Spec; evaluation is an AND over all
// conditions and short-circuits on the first failure.
type ConditionSet struct {
	name       string
	conditions []*Condition
}

// NewConditionSet creates a set from conditions.
func NewConditionSet(name string, conditions ...*Condition) *ConditionSet {
	return &ConditionSet{
		name:       ir.NormalizeName(name),
		conditions: slices.Clone(conditions),
	}
}

// ConditionSetFromLiteral builds a set from the literal form
//
//	{"x": {"GT", 10}, "cat_fraction": {"IN", -20, 0}, "level": {"TLT", 5, 3}}
//
// mapping a variable name to (operator, value[, value1 | prediction range]).
// Conditions are created in variable-name order.
func ConditionSetFromLiteral(reg *Registry, name string, literal map[string][]any) (*ConditionSet, error) {
	vars := make([]string, 0, len(literal))
	for v := range literal {
		vars = append(vars, v)
	}
	slices.Sort(vars)

	set := NewConditionSet(name)
	for _, v := range vars {
		c, err := conditionFromTuple(reg, v, literal[v])
		if err != nil {
			return nil, fmt.Errorf("condition set %q: %w", name, err)
		}
		set.Add(c)
	}
	return set, nil
}

func conditionFromTuple(reg *Registry, variable string, tuple []any) (*Condition, error) {
	if len(tuple) < 2 || len(tuple) > 3 {
		return nil, &EvalError{
			Code:     ErrCodeMissingParameter,
			Message:  fmt.Sprintf("expected (operator, value[, extra]), got %d element(s)", len(tuple)),
			Variable: variable,
		}
	}

	opText, ok := tuple[0].(string)
	if !ok {
		return nil, NewUnsupportedOperatorError(variable, fmt.Sprintf("%v", tuple[0]))
	}
	op, err := ParseOperator(opText)
	if err != nil {
		return nil, NewUnsupportedOperatorError(variable, opText)
	}

	value, err := ir.ValueFromAny(tuple[1])
	if err != nil {
		return nil, NewKindMismatchError(variable, err)
	}

	var opts []ConditionOption
	if len(tuple) == 3 {
		extra, err := ir.ValueFromAny(tuple[2])
		if err != nil {
			return nil, NewKindMismatchError(variable, err)
		}
		switch {
		case op.NeedsUpperBound():
			opts = append(opts, WithUpperBound(extra))
		case op.NeedsPredictionRange():
			n, ok := extra.(ir.Int)
			if !ok {
				return nil, NewKindMismatchError(variable, fmt.Errorf("prediction range must be an integer"))
			}
			opts = append(opts, WithPredictionRange(int64(n)))
		}
	}

	return NewCondition(reg, ByName(variable), op, value, opts...)
}

// ConditionSetFromSpec builds a set from its rule-table form.
func ConditionSetFromSpec(reg *Registry, spec ir.RuleSpec) (*ConditionSet, error) {
	set := NewConditionSet(spec.Name)
	for i, cs := range spec.Conditions {
		c, err := ConditionFromSpec(reg, cs)
		if err != nil {
			return nil, fmt.Errorf("rule %q condition %d: %w", spec.Name, i, err)
		}
		set.Add(c)
	}
	return set, nil
}

// Name returns the rule name.
func (s *ConditionSet) Name() string { return s.name }

// Add appends a condition. Owner-only: must not race with evaluation.
func (s *ConditionSet) Add(c *Condition) {
	s.conditions = append(s.conditions, c)
}

// Conditions returns the conditions in stored order.
func (s *ConditionSet) Conditions() []*Condition {
	return slices.Clone(s.conditions)
}

// Len returns the number of conditions.
func (s *ConditionSet) Len() int { return len(s.conditions) }

// Variables returns the distinct constrained variable names, sorted.
func (s *ConditionSet) Variables() []string {
	var names []string
	for _, c := range s.conditions {
		names = append(names, c.variable.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// SatisfiedBy reports whether every condition is satisfied by at least one
// comparable observation. A condition whose variable was not observed
// cannot be confirmed, so it makes the set unsatisfied.
func (s *ConditionSet) SatisfiedBy(obs *ObservationSet) (bool, error) {
	for _, c := range s.conditions {
		ok, err := c.SatisfiedByAny(obs)
		if err != nil {
			return false, fmt.Errorf("rule %q: %w", s.name, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// SatisfiableBy reports whether no condition is contradicted by a
// comparable observation. Unobserved variables do not block it: the rule
// is "not yet ruled out".
func (s *ConditionSet) SatisfiableBy(obs *ObservationSet) (bool, error) {
	for _, c := range s.conditions {
		violated, err := c.NotSatisfiedByAny(obs)
		if err != nil {
			return false, fmt.Errorf("rule %q: %w", s.name, err)
		}
		if violated {
			return false, nil
		}
	}
	return true, nil
}

// Status is the outcome of one condition against an observation set.
type Status int

const (
	StatusUnknown   Status = iota // no comparable observation
	StatusSatisfied               // confirmed by an observation
	StatusViolated                // contradicted by an observation
)

func (s Status) String() string {
	switch s {
	case StatusSatisfied:
		return "satisfied"
	case StatusViolated:
		return "violated"
	default:
		return "unknown"
	}
}

// ConditionResult is the per-condition part of a Verdict.
type ConditionResult struct {
	Condition *Condition
	Status    Status
	Observed  ir.Value // nil when Status is StatusUnknown
}

// Verdict explains how a condition set fares against an observation set.
type Verdict struct {
	Set         *ConditionSet
	Satisfied   bool
	Satisfiable bool
	Conditions  []ConditionResult
}

// Explain evaluates every condition (no short-circuit) and reports each
// outcome. Satisfied and Satisfiable agree with SatisfiedBy and
// SatisfiableBy.
func (s *ConditionSet) Explain(obs *ObservationSet) (Verdict, error) {
	verdict := Verdict{
		Set:         s,
		Satisfied:   true,
		Satisfiable: true,
		Conditions:  make([]ConditionResult, 0, len(s.conditions)),
	}

	for _, c := range s.conditions {
		result := ConditionResult{Condition: c, Status: StatusUnknown}

		satisfied, err := c.SatisfiedByAny(obs)
		if err != nil {
			return Verdict{}, fmt.Errorf("rule %q: %w", s.name, err)
		}
		violated, err := c.NotSatisfiedByAny(obs)
		if err != nil {
			return Verdict{}, fmt.Errorf("rule %q: %w", s.name, err)
		}

		switch {
		case satisfied:
			result.Status = StatusSatisfied
		case violated:
			result.Status = StatusViolated
		}
		if o, ok := obs.Get(c.variable.Name); ok {
			result.Observed = o.Value()
		}

		if !satisfied {
			verdict.Satisfied = false
		}
		if violated {
			verdict.Satisfiable = false
		}
		verdict.Conditions = append(verdict.Conditions, result)
	}
	return verdict, nil
}

// Spec returns the rule-table form of s.
func (s *ConditionSet) Spec() ir.RuleSpec {
	spec := ir.RuleSpec{Name: s.name, Conditions: make([]ir.ConditionSpec, len(s.conditions))}
	for i, c := range s.conditions {
		spec.Conditions[i] = c.Spec()
	}
	return spec
}

// ID returns the content-addressed ID of s.
func (s *ConditionSet) ID() (string, error) {
	return ir.RuleID(s.Spec())
}

func (s *ConditionSet) String() string {
	parts := make([]string, len(s.conditions))
	for i, c := range s.conditions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s[%s]", s.name, strings.Join(parts, " "))
}
