package engine

import (
	"fmt"

	"github.com/roach88/satset/internal/ir"
)

// Observation binds a Variable to a value.
//
// The value is coerced to the variable's kind at construction. Apart from
// Push, which appends to the rolling history, an Observation is immutable.
// Identity for deduplication is the variable name alone.
type Observation struct {
	variable  Variable
	seq       int64
	history   *History
	predictor Predictor
}

type observationConfig struct {
	capacity  int
	prior     []ir.Value
	predictor Predictor
	seq       int64
}

// ObservationOption configures NewObservation.
type ObservationOption func(*observationConfig)

// WithHistory keeps up to capacity readings (including the current one)
// for trend prediction.
func WithHistory(capacity int) ObservationOption {
	return func(c *observationConfig) {
		c.capacity = capacity
	}
}

// WithPrior seeds the history with earlier readings, newest first.
// Without WithHistory the capacity grows to fit them.
func WithPrior(values ...ir.Value) ObservationOption {
	return func(c *observationConfig) {
		c.prior = append(c.prior, values...)
	}
}

// WithPredictor sets the hook used by TLT/TGT conditions.
func WithPredictor(p Predictor) ObservationOption {
	return func(c *observationConfig) {
		c.predictor = p
	}
}

// WithSeq stamps the observation with a logical time.
func WithSeq(seq int64) ObservationOption {
	return func(c *observationConfig) {
		c.seq = seq
	}
}

// NewObservation creates an observation of v.
// Returns a KIND_MISMATCH error if value (or a prior reading) does not fit
// v.Kind.
func NewObservation(v Variable, value ir.Value, opts ...ObservationOption) (*Observation, error) {
	v, err := NewVariable(v.Name, v.Unit, v.Kind)
	if err != nil {
		return nil, err
	}

	var cfg observationConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity == 0 {
		cfg.capacity = len(cfg.prior) + 1
	}

	o := &Observation{
		variable:  v,
		seq:       cfg.seq,
		history:   NewHistory(cfg.capacity),
		predictor: cfg.predictor,
	}

	// Oldest first so the current value ends up newest.
	for i := len(cfg.prior) - 1; i >= 0; i-- {
		if err := o.Push(cfg.prior[i]); err != nil {
			return nil, err
		}
	}
	if err := o.Push(value); err != nil {
		return nil, err
	}
	return o, nil
}

// Variable returns the observed variable.
func (o *Observation) Variable() Variable { return o.variable }

// Name returns the observed variable's name.
func (o *Observation) Name() string { return o.variable.Name }

// Seq returns the logical time stamp (0 if none was given).
func (o *Observation) Seq() int64 { return o.seq }

// Value returns the current value.
func (o *Observation) Value() ir.Value {
	v, _ := o.history.Latest()
	return v
}

// History returns the retained readings, newest first.
func (o *Observation) History() []ir.Value {
	return o.history.Values()
}

// Push records a new reading, which becomes the current value.
// Owner-only: must not race with evaluation.
func (o *Observation) Push(value ir.Value) error {
	if value == nil {
		return NewKindMismatchError(o.variable.Name, fmt.Errorf("nil value"))
	}
	coerced, err := ir.Coerce(value, o.variable.Kind)
	if err != nil {
		return NewKindMismatchError(o.variable.Name, err)
	}
	o.history.Push(coerced)
	return nil
}

// Predict estimates the value horizon steps ahead.
// Without a predictor the current value is returned.
func (o *Observation) Predict(horizon int64) (ir.Value, error) {
	if o.predictor == nil {
		return o.Value(), nil
	}
	v, err := o.predictor(o.History(), horizon)
	if err != nil {
		return nil, &EvalError{
			Code:     ErrCodePredictionFailed,
			Message:  err.Error(),
			Variable: o.variable.Name,
		}
	}
	if v == nil {
		return nil, &EvalError{
			Code:     ErrCodePredictionFailed,
			Message:  "predictor returned no value",
			Variable: o.variable.Name,
		}
	}
	return v, nil
}

// Same reports whether o and other occupy the same slot in a set.
func (o *Observation) Same(other *Observation) bool {
	return other != nil && o.variable.Name == other.variable.Name
}

func (o *Observation) String() string {
	return fmt.Sprintf("%s=%s", o.variable.Name, ir.FormatValue(o.Value()))
}
