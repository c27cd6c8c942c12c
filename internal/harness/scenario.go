package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
)

// Scenario is a scripted sequence of observations checked against a rule
// table.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table names a rule table supplied with WithTables.
	// Mutually exclusive with Variables/Rules.
	Table string `yaml:"table,omitempty"`

	// Variables and Rules define an inline rule table.
	Variables []VariableDecl `yaml:"variables,omitempty"`
	Rules     []RuleDecl     `yaml:"rules,omitempty"`

	// Predictor selects the trend predictor: "last" (default) or "linear".
	Predictor string `yaml:"predictor,omitempty"`

	// Duplicates is the duplicate observation policy: "overwrite"
	// (default) or "reject".
	Duplicates string `yaml:"duplicates,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`
}

// VariableDecl declares a variable of an inline table.
type VariableDecl struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind,omitempty"` // default float
	Unit string `yaml:"unit,omitempty"`
}

// RuleDecl is a rule of an inline table.
type RuleDecl struct {
	Name string          `yaml:"name"`
	When []ConditionDecl `yaml:"when"`
}

// ConditionDecl is one condition of an inline rule.
type ConditionDecl struct {
	Var    string `yaml:"var"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
	Value1 any    `yaml:"value1,omitempty"`
	Range  *int64 `yaml:"range,omitempty"`
}

// Step adds observations and checks the outcome.
type Step struct {
	// Observe maps variable names to their new values.
	Observe map[string]any `yaml:"observe"`

	// History holds earlier readings per variable, oldest first.
	// Only variables also present in Observe may have a history.
	History map[string][]any `yaml:"history,omitempty"`

	// Expect is checked after the observations are added. A step whose
	// observations cannot all be applied adds none of them.
	// If nil, the step is recorded but not checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the expected evaluation outcome of a step.
// Nil fields are not checked; an empty list expects no rules.
type Expect struct {
	// Match is the name of the first matching rule, or "none".
	Match string `yaml:"match,omitempty"`

	// Satisfied lists the satisfied rules, in table order.
	Satisfied []string `yaml:"satisfied,omitempty"`

	// Satisfiable lists the rules not yet ruled out, in table order.
	Satisfiable []string `yaml:"satisfiable,omitempty"`

	// Error is a substring the step's error must contain.
	// A step with an error and no Error expectation fails.
	Error string `yaml:"error,omitempty"`
}

// NoMatch is the Expect.Match value meaning no rule matches.
const NoMatch = "none"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	inline := len(s.Variables) > 0 || len(s.Rules) > 0
	switch {
	case s.Table != "" && inline:
		return fmt.Errorf("table and inline variables/rules are mutually exclusive")
	case s.Table == "" && len(s.Rules) == 0:
		return fmt.Errorf("either table or rules is required")
	}

	if _, err := engine.ParsePredictor(s.Predictor); err != nil {
		return err
	}
	if _, err := engine.ParseDuplicatePolicy(s.Duplicates); err != nil {
		return err
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if len(step.Observe) == 0 {
			return fmt.Errorf("steps[%d]: observe is required and must be non-empty", i)
		}
		for name := range step.History {
			if _, ok := step.Observe[name]; !ok {
				return fmt.Errorf("steps[%d].history: %s has a history but no observation", i, name)
			}
		}
	}

	return nil
}

// InlineTable converts the inline variables and rules to a RuleTable named
// after the scenario.
func (s *Scenario) InlineTable() (ir.RuleTable, error) {
	table := ir.RuleTable{Name: s.Name}

	for i, decl := range s.Variables {
		kind := ir.KindFloat
		if decl.Kind != "" {
			var err error
			if kind, err = ir.ParseKind(decl.Kind); err != nil {
				return ir.RuleTable{}, fmt.Errorf("variables[%d]: %w", i, err)
			}
		}
		table.Variables = append(table.Variables, ir.VariableSpec{Name: decl.Name, Unit: decl.Unit, Kind: kind})
	}

	for i, decl := range s.Rules {
		rule := ir.RuleSpec{Name: decl.Name}
		for j, c := range decl.When {
			field := fmt.Sprintf("rules[%d].when[%d]", i, j)

			value, err := ir.ValueFromAny(c.Value)
			if err != nil {
				return ir.RuleTable{}, fmt.Errorf("%s.value: %w", field, err)
			}
			cond := ir.ConditionSpec{
				Variable:        c.Var,
				Operator:        c.Op,
				Value:           value,
				PredictionRange: c.Range,
			}
			if c.Value1 != nil {
				if cond.Value1, err = ir.ValueFromAny(c.Value1); err != nil {
					return ir.RuleTable{}, fmt.Errorf("%s.value1: %w", field, err)
				}
			}
			rule.Conditions = append(rule.Conditions, cond)
		}
		table.Rules = append(table.Rules, rule)
	}

	return table, nil
}
