package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/ir"
)

func TestObservationSet_OverwriteKeepsPosition(t *testing.T) {
	reg := NewRegistry()
	set := NewObservationSet()

	require.NoError(t, set.Add(mustObservation(t, reg, "x", ir.Int(1))))
	require.NoError(t, set.Add(mustObservation(t, reg, "y", ir.Int(2))))
	require.NoError(t, set.Add(mustObservation(t, reg, "x", ir.Int(7))))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"x", "y"}, set.Names())

	o, ok := set.Get("x")
	require.True(t, ok)
	assert.Equal(t, ir.Int(7), o.Value(), "later observation wins")
	assert.Equal(t, "{x=7, y=2}", set.String())
}

func TestObservationSet_Reject(t *testing.T) {
	reg := NewRegistry()
	set := NewObservationSet(WithDuplicatePolicy(DuplicateReject))

	require.NoError(t, set.Add(mustObservation(t, reg, "x", ir.Int(1))))
	err := set.Add(mustObservation(t, reg, "x", ir.Int(2)))
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))

	o, _ := set.Get("x")
	assert.Equal(t, ir.Int(1), o.Value(), "rejected insert leaves the set unchanged")
}

func TestObservationSet_NilObservation(t *testing.T) {
	assert.Error(t, NewObservationSet().Add(nil))
}

func TestObservationSet_NilSet(t *testing.T) {
	var set *ObservationSet
	assert.Equal(t, 0, set.Len())
	_, ok := set.Get("x")
	assert.False(t, ok)
	assert.Nil(t, set.Names())
	assert.Nil(t, set.Observations())
	assert.Equal(t, "{}", set.String())
}

func TestObservationSet_DecomposedName(t *testing.T) {
	reg := NewRegistry()
	o, err := NewObservation(Variable{Name: "cafe\u0301", Kind: ir.KindInt}, ir.Int(2))
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", o.Name())

	set := NewObservationSet()
	require.NoError(t, set.Add(o))

	for _, name := range []string{"cafe\u0301", "caf\u00e9"} {
		got, ok := set.Get(name)
		require.True(t, ok, "lookup by %q", name)
		assert.Same(t, o, got)
	}
	assert.Equal(t, []string{"caf\u00e9"}, set.Names())

	c, err := NewCondition(reg, ByName("caf\u00e9"), OpEQ, ir.Int(1))
	require.NoError(t, err)

	ok, err := c.SatisfiedBy(o)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.NotSatisfiedByAny(set)
	require.NoError(t, err)
	assert.True(t, ok, "the observation rules the condition out")

	conds := NewConditionSet("cafe")
	conds.Add(c)
	satisfiable, err := conds.SatisfiableBy(set)
	require.NoError(t, err)
	assert.False(t, satisfiable)
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateOverwrite, p)

	p, err = ParseDuplicatePolicy("REJECT")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReject, p)
	assert.Equal(t, "reject", p.String())

	_, err = ParseDuplicatePolicy("merge")
	assert.Error(t, err)
}

func TestObservationsFromMap(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Declare(Variable{Name: "cat fraction", Kind: ir.KindFloat})
	require.NoError(t, err)

	set, err := ObservationsFromMap(reg, map[string]any{
		"has dog":      true,
		"cat fraction": -10,
		"monkeys":      3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cat fraction", "has dog", "monkeys"}, set.Names())

	cats, _ := set.Get("cat fraction")
	assert.Equal(t, ir.Float(-10), cats.Value(), "declared kind wins over the literal")

	monkeys, _ := set.Get("monkeys")
	assert.Equal(t, ir.KindFloat, monkeys.Variable().Kind, "unknown numeric names are float")

	_, err = ObservationsFromMap(reg, map[string]any{"x": "seven"})
	require.Error(t, err)
	assert.True(t, IsKindMismatch(err))

	_, err = ObservationsFromMap(reg, map[string]any{"has dog": 1})
	assert.True(t, IsKindMismatch(err), "bool variable observed as a number")
}
