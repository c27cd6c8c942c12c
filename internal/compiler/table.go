package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/satset/internal/ir"
)

// CompileTable parses a CUE value into a RuleTable.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: pets: { variables: {...}, rules: [...] }`)
//	table, err := CompileTable(v.LookupPath(cue.ParsePath("table.pets")))
//
// CompileTable checks structure only. Semantic checks (operators, bounds,
// undeclared variables) are done by Validate so that all of them can be
// reported at once.
func CompileTable(v cue.Value) (*ir.RuleTable, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table := &ir.RuleTable{}

	// Table name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		table.Name = selectorName(labels[len(labels)-1])
	}

	var err error
	table.Variables, err = parseVariables(v)
	if err != nil {
		return nil, err
	}

	table.Rules, err = parseRules(v)
	if err != nil {
		return nil, err
	}
	if len(table.Rules) == 0 {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     v.Pos(),
		}
	}

	return table, nil
}

// parseVariables extracts variable declarations in source order.
// kind defaults to float when omitted.
func parseVariables(v cue.Value) ([]ir.VariableSpec, error) {
	var vars []ir.VariableSpec

	varsVal := v.LookupPath(cue.ParsePath("variables"))
	if !varsVal.Exists() {
		return vars, nil // undeclared variables are reported by Validate
	}

	iter, err := varsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := selectorName(iter.Selector())
		decl := iter.Value()

		spec := ir.VariableSpec{Name: name, Kind: ir.KindFloat}

		if kindVal := decl.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
			kindStr, err := kindVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			kind, err := ir.ParseKind(kindStr)
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("variables.%s.kind", name),
					Message: err.Error(),
					Pos:     kindVal.Pos(),
				}
			}
			spec.Kind = kind
		}

		if unitVal := decl.LookupPath(cue.ParsePath("unit")); unitVal.Exists() {
			unit, err := unitVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Unit = unit
		}

		vars = append(vars, spec)
	}

	return vars, nil
}

// parseRules extracts rules in priority order.
func parseRules(v cue.Value) ([]ir.RuleSpec, error) {
	var rules []ir.RuleSpec

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return rules, nil
	}

	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		ruleVal := iter.Value()
		field := fmt.Sprintf("rules[%d]", i)

		nameVal := ruleVal.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".name",
				Message: "rule name is required",
				Pos:     ruleVal.Pos(),
			}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		rule := ir.RuleSpec{Name: name}

		whenVal := ruleVal.LookupPath(cue.ParsePath("when"))
		if whenVal.Exists() {
			condIter, err := whenVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for j := 0; condIter.Next(); j++ {
				cond, err := parseCondition(condIter.Value(), fmt.Sprintf("%s.when[%d]", field, j))
				if err != nil {
					return nil, err
				}
				rule.Conditions = append(rule.Conditions, cond)
			}
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// parseCondition parses one {var, op, value, value1?, range?} entry.
func parseCondition(v cue.Value, field string) (ir.ConditionSpec, error) {
	var cond ir.ConditionSpec

	variable, err := requiredString(v, "var", field)
	if err != nil {
		return cond, err
	}
	op, err := requiredString(v, "op", field)
	if err != nil {
		return cond, err
	}
	cond.Variable = variable
	cond.Operator = op

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return cond, &CompileError{
			Field:   field + ".value",
			Message: "condition value is required",
			Pos:     v.Pos(),
		}
	}
	if cond.Value, err = extractValue(valueVal, field+".value"); err != nil {
		return cond, err
	}

	if v1 := v.LookupPath(cue.ParsePath("value1")); v1.Exists() {
		if cond.Value1, err = extractValue(v1, field+".value1"); err != nil {
			return cond, err
		}
	}

	if rangeVal := v.LookupPath(cue.ParsePath("range")); rangeVal.Exists() {
		n, err := rangeVal.Int64()
		if err != nil {
			return cond, &CompileError{
				Field:   field + ".range",
				Message: "prediction range must be an integer",
				Pos:     rangeVal.Pos(),
			}
		}
		cond.PredictionRange = &n
	}

	return cond, nil
}

// selectorName returns a field label without quotes, so "has dog" reads
// as has dog.
func selectorName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func requiredString(v cue.Value, key, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{
			Field:   field + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// extractValue converts a concrete CUE scalar into an ir.Value.
// 10 becomes Int, 10.0 becomes Float.
func extractValue(v cue.Value, field string) (ir.Value, error) {
	switch v.IncompleteKind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.ValueFromAny(f)
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be a bool or a number, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
