package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/ir"
)

func int64Ptr(n int64) *int64 { return &n }

func petsTable() *ir.RuleTable {
	return &ir.RuleTable{
		Name: "pets",
		Variables: []ir.VariableSpec{
			{Name: "has_dog", Kind: ir.KindBool},
			{Name: "cat_fraction", Unit: "percent", Kind: ir.KindFloat},
			{Name: "monkey_count", Kind: ir.KindInt},
		},
		Rules: []ir.RuleSpec{
			{
				Name: "calm",
				Conditions: []ir.ConditionSpec{
					{Variable: "has_dog", Operator: "EQ", Value: ir.Bool(true)},
					{Variable: "cat_fraction", Operator: "IN", Value: ir.Int(-20), Value1: ir.Int(0)},
				},
			},
			{
				Name: "zoo",
				Conditions: []ir.ConditionSpec{
					{Variable: "monkey_count", Operator: "TGT", Value: ir.Int(50), PredictionRange: int64Ptr(2)},
				},
			},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateTableValid(t *testing.T) {
	assert.Empty(t, Validate(petsTable()))
	assert.Empty(t, Validate(*petsTable()), "value and pointer forms are equivalent")
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a table")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateTableErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.RuleTable)
		code   string
		field  string
	}{
		{
			name:   "empty table name",
			mutate: func(t *ir.RuleTable) { t.Name = " " },
			code:   ErrEmptyName,
			field:  "name",
		},
		{
			name:   "unknown kind",
			mutate: func(t *ir.RuleTable) { t.Variables[2].Kind = ir.Kind(9) },
			code:   ErrUnknownKind,
			field:  "variables[2].kind",
		},
		{
			name: "duplicate variable",
			mutate: func(t *ir.RuleTable) {
				t.Variables = append(t.Variables, ir.VariableSpec{Name: "has_dog", Kind: ir.KindBool})
			},
			code:  ErrDuplicateVar,
			field: "variables[3].name",
		},
		{
			name:   "duplicate rule name",
			mutate: func(t *ir.RuleTable) { t.Rules[1].Name = "calm" },
			code:   ErrDuplicateRule,
			field:  "rules[1].name",
		},
		{
			name:   "rule without conditions",
			mutate: func(t *ir.RuleTable) { t.Rules[1].Conditions = nil },
			code:   ErrRuleNoCondition,
			field:  "rules[1].when",
		},
		{
			name:   "unsupported operator",
			mutate: func(t *ir.RuleTable) { t.Rules[0].Conditions[0].Operator = "ABOUT" },
			code:   ErrUnsupportedOperator,
			field:  "rules[0].when[0]",
		},
		{
			name:   "IN without upper bound",
			mutate: func(t *ir.RuleTable) { t.Rules[0].Conditions[1].Value1 = nil },
			code:   ErrMissingParameter,
			field:  "rules[0].when[1]",
		},
		{
			name:   "TGT without range",
			mutate: func(t *ir.RuleTable) { t.Rules[1].Conditions[0].PredictionRange = nil },
			code:   ErrMissingParameter,
			field:  "rules[1].when[0]",
		},
		{
			name:   "reversed IN bounds",
			mutate: func(t *ir.RuleTable) { t.Rules[0].Conditions[1].Value1 = ir.Int(-30) },
			code:   ErrInvalidBounds,
			field:  "rules[0].when[1]",
		},
		{
			name:   "bool threshold on float variable",
			mutate: func(t *ir.RuleTable) { t.Rules[0].Conditions[1].Value = ir.Bool(false) },
			code:   ErrThresholdKind,
			field:  "rules[0].when[1]",
		},
		{
			name:   "undeclared variable",
			mutate: func(t *ir.RuleTable) { t.Rules[1].Conditions[0].Variable = "parrots" },
			code:   ErrUndeclaredVariable,
			field:  "rules[1].when[0].var",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := petsTable()
			tt.mutate(table)

			errs := Validate(table)
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	table := petsTable()
	table.Name = ""
	table.Rules[0].Conditions[0].Operator = "??"
	table.Rules[1].Conditions = nil

	errs := Validate(table)
	assert.Equal(t, []string{ErrEmptyName, ErrUnsupportedOperator, ErrRuleNoCondition}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "rules[0]", Message: "bad", Code: ErrInvalidBounds}
	assert.Equal(t, "[E112] rules[0]: bad", err.Error())

	err.Line = 7
	assert.Equal(t, "[E112] line 7: rules[0]: bad", err.Error())
}
