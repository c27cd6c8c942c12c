package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/ir"
)

func orderedRules(t *testing.T, reg *Registry) *RuleList {
	t.Helper()
	list := NewRuleList()
	require.NoError(t, list.AppendLiteral(reg, "hot", map[string][]any{
		"x": {"GT", 10},
		"y": {"LT", 5},
	}))
	require.NoError(t, list.AppendLiteral(reg, "seven", map[string][]any{
		"x": {"EQ", 7},
	}))
	return list
}

func TestRuleList_Match(t *testing.T) {
	reg := NewRegistry()
	list := orderedRules(t, reg)

	obs, err := ObservationsFromMap(reg, map[string]any{"x": 7})
	require.NoError(t, err)

	m, ok, err := list.Match(obs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "seven", m.Set.Name())
}

func TestRuleList_FirstMatchWins(t *testing.T) {
	reg := NewRegistry()
	list := NewRuleList()
	require.NoError(t, list.AppendLiteral(reg, "broad", map[string][]any{"x": {"GT", 0}}))
	require.NoError(t, list.AppendLiteral(reg, "narrow", map[string][]any{"x": {"EQ", 7}}))

	obs, err := ObservationsFromMap(reg, map[string]any{"x": 7})
	require.NoError(t, err)

	m, ok, err := list.Match(obs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Index, "priority order, not specificity")
}

func TestRuleList_NoMatch(t *testing.T) {
	reg := NewRegistry()
	list := orderedRules(t, reg)

	obs, err := ObservationsFromMap(reg, map[string]any{"x": 3})
	require.NoError(t, err)

	_, ok, err := list.Match(obs)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = NewRuleList().Match(obs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRuleList_Pending(t *testing.T) {
	reg := NewRegistry()
	list := orderedRules(t, reg)

	none, err := list.Pending(NewObservationSet())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, none)

	obs, err := ObservationsFromMap(reg, map[string]any{"y": 2})
	require.NoError(t, err)
	pending, err := list.Pending(obs)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pending, "x is still unknown")

	obs, err = ObservationsFromMap(reg, map[string]any{"x": 12})
	require.NoError(t, err)
	pending, err = list.Pending(obs)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pending)
}

func TestRuleList_Explain(t *testing.T) {
	reg := NewRegistry()
	list := orderedRules(t, reg)

	obs, err := ObservationsFromMap(reg, map[string]any{"x": 7})
	require.NoError(t, err)

	verdicts, err := list.Explain(obs)
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Satisfied)
	assert.False(t, verdicts[0].Satisfiable)
	assert.True(t, verdicts[1].Satisfied)
}

func TestRuleListFromTable(t *testing.T) {
	table := ir.RuleTable{
		Name: "pets",
		Variables: []ir.VariableSpec{
			{Name: "hasDog", Kind: ir.KindBool},
			{Name: "catFraction", Unit: "percent", Kind: ir.KindFloat},
		},
		Rules: []ir.RuleSpec{
			{
				Name: "dog person",
				Conditions: []ir.ConditionSpec{
					{Variable: "hasDog", Operator: "EQ", Value: ir.Bool(true)},
					{Variable: "catFraction", Operator: "IN", Value: ir.Int(-20), Value1: ir.Int(0)},
				},
			},
		},
	}

	reg := NewRegistry()
	list, err := RuleListFromTable(reg, table)
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	assert.Equal(t, "dog person[hasDog==true -20<catFraction<0]", list.At(0).String())

	cats, ok := reg.Lookup("catFraction")
	require.True(t, ok)
	assert.Equal(t, "percent", cats.Unit)

	round := list.Table("pets")
	assert.Equal(t, table.Variables, round.Variables)
	assert.Equal(t, "IN", round.Rules[0].Conditions[1].Operator)
	assert.Equal(t, ir.Float(-20), round.Rules[0].Conditions[1].Value)
}

func TestRuleListFromTable_KindConflict(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Intern("hasDog", ir.KindInt)
	require.NoError(t, err)

	_, err = RuleListFromTable(reg, ir.RuleTable{
		Name:      "pets",
		Variables: []ir.VariableSpec{{Name: "hasDog", Kind: ir.KindBool}},
	})
	require.Error(t, err)
	assert.True(t, IsKindMismatch(err))
}
