package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
)

func TestWriteVariable_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteVariable(ctx, ir.VariableSpec{Name: "level", Unit: "m", Kind: ir.KindFloat}))
	require.NoError(t, s.WriteVariable(ctx, ir.VariableSpec{Name: "level", Unit: "cm", Kind: ir.KindFloat}))

	v, err := s.ReadVariable(ctx, "level")
	require.NoError(t, err)
	assert.Equal(t, "m", v.Unit, "first unit wins")

	err = s.WriteVariable(ctx, ir.VariableSpec{Name: "level", Kind: ir.KindBool})
	assert.Error(t, err, "kind cannot change")

	assert.Error(t, s.WriteVariable(ctx, ir.VariableSpec{Name: " "}))
}

func TestReadVariable_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadVariable(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadVariables_Ordered(t *testing.T) {
	s := createTestStore(t)
	mustDeclare(t, s, "zeta", ir.KindInt)
	mustDeclare(t, s, "Alpha", ir.KindBool)
	mustDeclare(t, s, "alpha", ir.KindFloat)

	vars, err := s.ReadVariables(context.Background())
	require.NoError(t, err)

	var names []string
	for _, v := range vars {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"Alpha", "alpha", "zeta"}, names, "binary collation")
}

func TestWriteReading(t *testing.T) {
	s := createTestStore(t)
	mustDeclare(t, s, "level", ir.KindFloat)

	first := mustRecord(t, s, "level", ir.Int(3))
	second := mustRecord(t, s, "level", ir.Float(3.5))
	assert.Less(t, first, second, "seq is monotonic")

	series, err := s.LatestReadings(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []Reading{
		{Seq: second, Value: ir.Float(3.5)},
		{Seq: first, Value: ir.Float(3)},
	}, series[0].Readings, "int reading stored as the declared float kind")
}

func TestWriteReading_DeclaresUnknownVariable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustRecord(t, s, "has dog", ir.Bool(true))

	v, err := s.ReadVariable(ctx, "has dog")
	require.NoError(t, err)
	assert.Equal(t, ir.KindBool, v.Kind)

	_, err = s.WriteReading(ctx, "has dog", ir.Int(1))
	assert.Error(t, err, "reading must fit the declared kind")

	_, err = s.WriteReading(ctx, "has dog", nil)
	assert.Error(t, err)
}

func TestLatestReadings_Depth(t *testing.T) {
	s := createTestStore(t)
	for i := 1; i <= 5; i++ {
		mustRecord(t, s, "x", ir.Int(i))
	}
	mustRecord(t, s, "y", ir.Int(100))

	series, err := s.LatestReadings(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, "x", series[0].Variable.Name)
	require.Len(t, series[0].Readings, 2)
	assert.Equal(t, ir.Float(5), series[0].Readings[0].Value)
	assert.Equal(t, ir.Float(4), series[0].Readings[1].Value)

	assert.Equal(t, "y", series[1].Variable.Name)
	assert.Len(t, series[1].Readings, 1)

	_, err = s.LatestReadings(context.Background(), 0)
	assert.Error(t, err)
}

func TestLatestReadings_Empty(t *testing.T) {
	s := createTestStore(t)
	mustDeclare(t, s, "quiet", ir.KindInt)

	series, err := s.LatestReadings(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, series, "declared but unread variables are omitted")

	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestObservations(t *testing.T) {
	s := createTestStore(t)
	mustDeclare(t, s, "level", ir.KindFloat)
	for _, v := range []float64{1, 2, 3, 4} {
		mustRecord(t, s, "level", ir.Float(v))
	}
	last := mustRecord(t, s, "has dog", ir.Bool(true))

	reg := engine.NewRegistry()
	set, err := s.Observations(context.Background(), reg, 3, engine.LinearTrend)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	level, ok := set.Get("level")
	require.True(t, ok)
	assert.Equal(t, ir.Float(4), level.Value())
	assert.Equal(t, []ir.Value{ir.Float(4), ir.Float(3), ir.Float(2)}, level.History())

	predicted, err := level.Predict(1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, float64(predicted.(ir.Float)), 1e-9)

	dog, ok := set.Get("has dog")
	require.True(t, ok)
	assert.Equal(t, last, dog.Seq())

	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last, seq)
}

func TestObservations_KindConflict(t *testing.T) {
	s := createTestStore(t)
	mustRecord(t, s, "count", ir.Float(2.5))

	reg := engine.NewRegistry()
	_, err := reg.Declare(engine.Variable{Name: "count", Kind: ir.KindInt})
	require.NoError(t, err)

	_, err = s.Observations(context.Background(), reg, 1, nil)
	require.Error(t, err)
	assert.True(t, engine.IsKindMismatch(err))
}
