package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/satset/internal/ir"
)

// RuleList is a priority-ordered sequence of condition sets.
//
// INVARIANTS:
//   - Sets are evaluated in stored order; Match returns the first fully
//     satisfied one, not the best or all of them
//   - The order never changes except by Append
type RuleList struct {
	sets []*ConditionSet
}

// Match identifies the condition set a RuleList matched.
type Match struct {
	// Index is the position of Set in the list (0-based).
	Index int

	// Set is the matched condition set.
	Set *ConditionSet
}

// NewRuleList creates a list from sets, in the given order.
func NewRuleList(sets ...*ConditionSet) *RuleList {
	return &RuleList{sets: slices.Clone(sets)}
}

// RuleListFromTable declares the table's variables in reg and builds one
// condition set per rule, in table order.
func RuleListFromTable(reg *Registry, table ir.RuleTable) (*RuleList, error) {
	for _, vs := range table.Variables {
		v, err := VariableFromSpec(vs)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", table.Name, err)
		}
		if _, err := reg.Declare(v); err != nil {
			return nil, fmt.Errorf("table %q: %w", table.Name, err)
		}
	}

	list := NewRuleList()
	for _, rule := range table.Rules {
		set, err := ConditionSetFromSpec(reg, rule)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", table.Name, err)
		}
		list.Append(set)
	}
	return list, nil
}

// Append adds set at the lowest priority.
func (l *RuleList) Append(set *ConditionSet) {
	l.sets = append(l.sets, set)
}

// AppendLiteral builds a set with ConditionSetFromLiteral and appends it.
func (l *RuleList) AppendLiteral(reg *Registry, name string, literal map[string][]any) error {
	set, err := ConditionSetFromLiteral(reg, name, literal)
	if err != nil {
		return err
	}
	l.Append(set)
	return nil
}

// Len returns the number of condition sets.
func (l *RuleList) Len() int { return len(l.sets) }

// At returns the condition set at index i.
func (l *RuleList) At(i int) *ConditionSet { return l.sets[i] }

// Match returns the first condition set satisfied by obs.
// ok is false when none matches; that is a result, not an error.
func (l *RuleList) Match(obs *ObservationSet) (Match, bool, error) {
	for i, set := range l.sets {
		satisfied, err := set.SatisfiedBy(obs)
		if err != nil {
			return Match{}, false, err
		}
		if satisfied {
			slog.Debug("rule matched",
				"index", i,
				"rule", set.Name(),
			)
			return Match{Index: i, Set: set}, true, nil
		}
	}
	slog.Debug("no rule matched", "rules", len(l.sets), "observations", obs.Len())
	return Match{}, false, nil
}

// Pending returns the indices of the sets obs has not ruled out yet, in
// priority order. Useful while some variables are still unmeasured.
func (l *RuleList) Pending(obs *ObservationSet) ([]int, error) {
	var pending []int
	for i, set := range l.sets {
		ok, err := set.SatisfiableBy(obs)
		if err != nil {
			return nil, err
		}
		if ok {
			pending = append(pending, i)
		}
	}
	return pending, nil
}

// Explain returns a Verdict for every set, in priority order.
func (l *RuleList) Explain(obs *ObservationSet) ([]Verdict, error) {
	verdicts := make([]Verdict, 0, len(l.sets))
	for _, set := range l.sets {
		v, err := set.Explain(obs)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// Table returns the rule-table form of l. Variables are listed in order of
// first reference.
func (l *RuleList) Table(name string) ir.RuleTable {
	table := ir.RuleTable{Name: name}
	seen := make(map[string]bool)
	for _, set := range l.sets {
		table.Rules = append(table.Rules, set.Spec())
		for _, c := range set.conditions {
			if !seen[c.variable.Name] {
				seen[c.variable.Name] = true
				table.Variables = append(table.Variables, c.variable.Spec())
			}
		}
	}
	return table
}
