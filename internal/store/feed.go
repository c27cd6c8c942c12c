package store

import (
	"context"
	"fmt"

	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
)

// Observations builds an ObservationSet from the newest readings.
//
// Every variable with at least one reading contributes one observation whose
// current value is its newest reading and whose history holds up to depth
// readings. Stored declarations are checked against reg, so a table that
// declares a variable as int fails on a feed that stores it as float.
// predictor may be nil.
func (s *Store) Observations(
	ctx context.Context,
	reg *engine.Registry,
	depth int,
	predictor engine.Predictor,
	opts ...engine.ObservationSetOption,
) (*engine.ObservationSet, error) {
	series, err := s.LatestReadings(ctx, depth)
	if err != nil {
		return nil, err
	}

	set := engine.NewObservationSet(opts...)
	for _, sr := range series {
		v, err := engine.VariableFromSpec(sr.Variable)
		if err != nil {
			return nil, fmt.Errorf("feed variable %s: %w", sr.Variable.Name, err)
		}
		if v, err = reg.Declare(v); err != nil {
			return nil, fmt.Errorf("feed variable %s: %w", sr.Variable.Name, err)
		}

		prior := make([]ir.Value, 0, len(sr.Readings)-1)
		for _, r := range sr.Readings[1:] {
			prior = append(prior, r.Value)
		}

		obsOpts := []engine.ObservationOption{
			engine.WithHistory(depth),
			engine.WithPrior(prior...),
			engine.WithSeq(sr.Readings[0].Seq),
		}
		if predictor != nil {
			obsOpts = append(obsOpts, engine.WithPredictor(predictor))
		}

		o, err := engine.NewObservation(v, sr.Readings[0].Value, obsOpts...)
		if err != nil {
			return nil, fmt.Errorf("feed variable %s: %w", sr.Variable.Name, err)
		}
		if err := set.Add(o); err != nil {
			return nil, err
		}
	}
	return set, nil
}
