package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Table errors (E101-E109)
	ErrUnknownKind     = "E101" // variable kind is not bool, int or float
	ErrDuplicateRule   = "E102" // two rules share a name
	ErrRuleNoCondition = "E103" // rule has no conditions
	ErrDuplicateVar    = "E104" // variable declared twice

	// Condition errors (E110-E119)
	ErrUnsupportedOperator = "E110" // operator is not defined
	ErrMissingParameter    = "E111" // IN without value1, TLT/TGT without range
	ErrInvalidBounds       = "E112" // IN with value >= value1, range < 1
	ErrThresholdKind       = "E113" // threshold does not fit the variable's kind
	ErrUndeclaredVariable  = "E114" // condition on a variable the table does not declare
	ErrEmptyName           = "E115" // empty table, variable or rule name
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled rule table.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch table := v.(type) {
	case *ir.RuleTable:
		return validateTable(table)
	case ir.RuleTable:
		return validateTable(&table)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateTable(table *ir.RuleTable) []ValidationError {
	var errs []ValidationError

	// E115: table name
	if strings.TrimSpace(table.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "table name is required",
			Code:    ErrEmptyName,
		})
	}

	// Declared variables go into a private registry; conditions are then
	// built against it exactly as RuleListFromTable would.
	reg := engine.NewRegistry()
	declared := make(map[string]bool)
	for i, vs := range table.Variables {
		field := fmt.Sprintf("variables[%d]", i)

		if strings.TrimSpace(vs.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "variable name is required",
				Code:    ErrEmptyName,
			})
			continue
		}
		name := ir.NormalizeName(strings.TrimSpace(vs.Name))
		if declared[name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("variable %s declared more than once", name),
				Code:    ErrDuplicateVar,
			})
			continue
		}
		declared[name] = true

		// Still counts as declared so its conditions do not also report E114.
		if !vs.Kind.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown kind %s for variable %s", vs.Kind, vs.Name),
				Code:    ErrUnknownKind,
			})
			continue
		}

		if _, err := reg.Declare(engine.Variable{Name: vs.Name, Unit: vs.Unit, Kind: vs.Kind}); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrUnknownKind,
			})
		}
	}

	ruleNames := make(map[string]int)
	for i, rule := range table.Rules {
		field := fmt.Sprintf("rules[%d]", i)

		// E115: rule name
		if strings.TrimSpace(rule.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "rule name is required",
				Code:    ErrEmptyName,
			})
		} else if first, ok := ruleNames[rule.Name]; ok {
			// E102: duplicate rule name
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("rule %q already defined at rules[%d]", rule.Name, first),
				Code:    ErrDuplicateRule,
			})
		} else {
			ruleNames[rule.Name] = i
		}

		// E103: at least one condition
		if len(rule.Conditions) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".when",
				Message: fmt.Sprintf("rule %q has no conditions", rule.Name),
				Code:    ErrRuleNoCondition,
			})
		}

		for j, cond := range rule.Conditions {
			errs = append(errs, validateCondition(reg, declared, cond, fmt.Sprintf("%s.when[%d]", field, j))...)
		}
	}

	return errs
}

// validateCondition checks one condition by constructing it.
func validateCondition(reg *engine.Registry, declared map[string]bool, cond ir.ConditionSpec, field string) []ValidationError {
	name := ir.NormalizeName(strings.TrimSpace(cond.Variable))

	if name == "" {
		return []ValidationError{{
			Field:   field + ".var",
			Message: "condition variable is required",
			Code:    ErrEmptyName,
		}}
	}

	// E114: conditions may only reference declared variables
	if !declared[name] {
		return []ValidationError{{
			Field:   field + ".var",
			Message: fmt.Sprintf("variable %s is not declared", cond.Variable),
			Code:    ErrUndeclaredVariable,
		}}
	}

	if _, err := engine.ConditionFromSpec(reg, cond); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    codeForEvalError(err),
		}}
	}
	return nil
}

// codeForEvalError maps an engine construction error to a validation code.
func codeForEvalError(err error) string {
	var ee *engine.EvalError
	if !errors.As(err, &ee) {
		return ErrUnsupportedIRType
	}
	switch ee.Code {
	case engine.ErrCodeUnsupportedOperator:
		return ErrUnsupportedOperator
	case engine.ErrCodeMissingParameter:
		return ErrMissingParameter
	case engine.ErrCodeInvalidBounds:
		return ErrInvalidBounds
	case engine.ErrCodeKindMismatch:
		return ErrThresholdKind
	case engine.ErrCodeInvalidVariable:
		return ErrEmptyName
	default:
		return ErrUnsupportedIRType
	}
}
