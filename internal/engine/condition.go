package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/satset/internal/ir"
)

// Condition is a single typed predicate over one variable.
// Immutable after construction.
type Condition struct {
	variable        Variable
	op              Operator
	value           ir.Value
	value1          ir.Value // upper bound, IN only
	predictionRange int64    // TLT/TGT only
}

type conditionParams struct {
	value1          ir.Value
	predictionRange *int64
}

// ConditionOption supplies the auxiliary parameter some operators need.
type ConditionOption func(*conditionParams)

// WithUpperBound sets value1, the exclusive upper bound of IN.
func WithUpperBound(v ir.Value) ConditionOption {
	return func(p *conditionParams) {
		p.value1 = v
	}
}

// WithPredictionRange sets how many steps ahead TLT/TGT look.
func WithPredictionRange(n int64) ConditionOption {
	return func(p *conditionParams) {
		p.predictionRange = &n
	}
}

// NewCondition builds a condition on the referenced variable.
//
// A name reference unknown to reg is interned with the kind of value.
// Thresholds are coerced to the variable's kind.
//
// Errors (all at construction, never deferred to evaluation):
//   - UNSUPPORTED_OPERATOR: op is not a defined operator
//   - MISSING_OPERATOR_PARAMETER: IN without WithUpperBound, TLT/TGT without
//     WithPredictionRange
//   - INVALID_BOUNDS: IN with value >= value1, or a prediction range < 1
//   - KIND_MISMATCH: a threshold that does not fit the variable's kind
func NewCondition(reg *Registry, ref VariableRef, op Operator, value ir.Value, opts ...ConditionOption) (*Condition, error) {
	if !op.Valid() {
		return nil, NewUnsupportedOperatorError(ref.Name(), fmt.Sprintf("Operator(%d)", int(op)))
	}
	if value == nil {
		return nil, NewKindMismatchError(ref.Name(), fmt.Errorf("%s requires a threshold value", op))
	}

	var params conditionParams
	for _, opt := range opts {
		opt(&params)
	}

	// Parameter presence is checked before the name is interned so a
	// rejected condition leaves the registry untouched.
	if op.NeedsUpperBound() && params.value1 == nil {
		return nil, NewMissingParameterError(ref.Name(), op, "value1")
	}
	if op.NeedsPredictionRange() {
		if params.predictionRange == nil {
			return nil, NewMissingParameterError(ref.Name(), op, "prediction range")
		}
		if *params.predictionRange < 1 {
			return nil, &EvalError{
				Code:     ErrCodeInvalidBounds,
				Message:  fmt.Sprintf("prediction range must be positive, got %d", *params.predictionRange),
				Variable: ref.Name(),
				Operator: op.String(),
			}
		}
	}

	v, err := reg.Resolve(ref, ir.NameKind(value))
	if err != nil {
		return nil, err
	}

	c := &Condition{variable: v, op: op}
	if c.value, err = ir.Coerce(value, v.Kind); err != nil {
		return nil, NewKindMismatchError(v.Name, err)
	}
	if op.NeedsPredictionRange() {
		c.predictionRange = *params.predictionRange
	}

	if op.NeedsUpperBound() {
		if c.value1, err = ir.Coerce(params.value1, v.Kind); err != nil {
			return nil, NewKindMismatchError(v.Name, err)
		}
		cmp, err := ir.Compare(c.value, c.value1)
		if err != nil {
			return nil, NewKindMismatchError(v.Name, err)
		}
		if cmp >= 0 {
			return nil, &EvalError{
				Code:     ErrCodeInvalidBounds,
				Message:  fmt.Sprintf("IN requires value < value1, got %s and %s", ir.FormatValue(c.value), ir.FormatValue(c.value1)),
				Variable: v.Name,
				Operator: op.String(),
			}
		}
	}

	return c, nil
}

// ParseCondition is NewCondition with the operator given as text.
func ParseCondition(reg *Registry, ref VariableRef, op string, value ir.Value, opts ...ConditionOption) (*Condition, error) {
	parsed, err := ParseOperator(op)
	if err != nil {
		return nil, NewUnsupportedOperatorError(ref.Name(), op)
	}
	return NewCondition(reg, ref, parsed, value, opts...)
}

// ConditionFromSpec builds a condition from its rule-table form.
func ConditionFromSpec(reg *Registry, spec ir.ConditionSpec) (*Condition, error) {
	var opts []ConditionOption
	if spec.Value1 != nil {
		opts = append(opts, WithUpperBound(spec.Value1))
	}
	if spec.PredictionRange != nil {
		opts = append(opts, WithPredictionRange(*spec.PredictionRange))
	}
	return ParseCondition(reg, ByName(spec.Variable), spec.Operator, spec.Value, opts...)
}

// Variable returns the constrained variable.
func (c *Condition) Variable() Variable { return c.variable }

// Operator returns the comparison operator.
func (c *Condition) Operator() Operator { return c.op }

// Value returns the threshold.
func (c *Condition) Value() ir.Value { return c.value }

// UpperBound returns value1 for IN conditions.
func (c *Condition) UpperBound() (ir.Value, bool) { return c.value1, c.value1 != nil }

// PredictionRange returns the horizon of TLT/TGT conditions.
func (c *Condition) PredictionRange() (int64, bool) {
	return c.predictionRange, c.op.NeedsPredictionRange()
}

// Comparable reports whether o observes the same variable as c.
func (c *Condition) Comparable(o *Observation) bool {
	return o != nil && o.variable.Name == c.variable.Name
}

// SatisfiedBy evaluates c against a single observation.
//
// An observation of another variable is a usage error: the result is false
// and the error is an INCOMPARABLE_OPERANDS EvalError.
func (c *Condition) SatisfiedBy(o *Observation) (bool, error) {
	if !c.Comparable(o) {
		other := "<nil>"
		if o != nil {
			other = o.variable.Name
		}
		slog.Warn("incomparable operands",
			"condition", c.String(),
			"observation", other,
		)
		return false, NewIncomparableError(c.variable.Name, other)
	}

	// TLT and TGT read as "trending less/greater than", but compare the
	// threshold against the prediction in this literal direction.
	switch c.op {
	case OpGT:
		return c.compare(o.Value(), func(cmp int) bool { return cmp > 0 })
	case OpGTE:
		return c.compare(o.Value(), func(cmp int) bool { return cmp >= 0 })
	case OpLT:
		return c.compare(o.Value(), func(cmp int) bool { return cmp < 0 })
	case OpLTE:
		return c.compare(o.Value(), func(cmp int) bool { return cmp <= 0 })
	case OpEQ:
		return c.compare(o.Value(), func(cmp int) bool { return cmp == 0 })
	case OpNEQ:
		return c.compare(o.Value(), func(cmp int) bool { return cmp != 0 })
	case OpIN:
		return c.in(o.Value())
	case OpTLT:
		return c.trend(o, func(cmp int) bool { return cmp < 0 })
	case OpTGT:
		return c.trend(o, func(cmp int) bool { return cmp > 0 })
	default:
		return false, NewUnsupportedOperatorError(c.variable.Name, c.op.String())
	}
}

// compare applies pred to Compare(observed, threshold).
func (c *Condition) compare(observed ir.Value, pred func(int) bool) (bool, error) {
	cmp, err := ir.Compare(observed, c.value)
	if err != nil {
		return false, NewKindMismatchError(c.variable.Name, err)
	}
	return pred(cmp), nil
}

// in checks value < observed < value1, exclusive on both ends.
func (c *Condition) in(observed ir.Value) (bool, error) {
	ok, err := c.compare(observed, func(cmp int) bool { return cmp > 0 })
	if err != nil || !ok {
		return false, err
	}
	upper, err := ir.Compare(observed, c.value1)
	if err != nil {
		return false, NewKindMismatchError(c.variable.Name, err)
	}
	return upper < 0, nil
}

// trend applies pred to Compare(threshold, predicted).
func (c *Condition) trend(o *Observation, pred func(int) bool) (bool, error) {
	predicted, err := o.Predict(c.predictionRange)
	if err != nil {
		return false, err
	}
	cmp, err := ir.Compare(c.value, predicted)
	if err != nil {
		return false, NewKindMismatchError(c.variable.Name, err)
	}
	return pred(cmp), nil
}

// SatisfiedByAny reports whether some observation of c's variable in set
// satisfies c. Observations of other variables are ignored; with none of
// c's variable the answer is false.
func (c *Condition) SatisfiedByAny(set *ObservationSet) (bool, error) {
	for _, o := range set.comparable(c.variable.Name) {
		ok, err := c.SatisfiedBy(o)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// NotSatisfiedByAny reports whether some observation of c's variable in
// set contradicts c. With none of c's variable the answer is false.
func (c *Condition) NotSatisfiedByAny(set *ObservationSet) (bool, error) {
	for _, o := range set.comparable(c.variable.Name) {
		ok, err := c.SatisfiedBy(o)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

// Spec returns the rule-table form of c.
func (c *Condition) Spec() ir.ConditionSpec {
	spec := ir.ConditionSpec{
		Variable: c.variable.Name,
		Operator: c.op.String(),
		Value:    c.value,
		Value1:   c.value1,
	}
	if c.op.NeedsPredictionRange() {
		n := c.predictionRange
		spec.PredictionRange = &n
	}
	return spec
}

func (c *Condition) String() string {
	name := c.variable.Name
	val := ir.FormatValue(c.value)
	switch c.op {
	case OpGT:
		return name + ">" + val
	case OpGTE:
		return name + ">=" + val
	case OpLT:
		return name + "<" + val
	case OpLTE:
		return name + "<=" + val
	case OpEQ:
		return name + "==" + val
	case OpNEQ:
		return name + "!=" + val
	case OpIN:
		return val + "<" + name + "<" + ir.FormatValue(c.value1)
	case OpTLT:
		return name + "..<" + val
	case OpTGT:
		return name + "..>" + val
	default:
		return name + "?" + val
	}
}
