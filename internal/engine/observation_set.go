package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/satset/internal/ir"
)

// DuplicatePolicy decides what Add does with a second observation of a
// variable that is already in the set.
type DuplicatePolicy int

const (
	// DuplicateOverwrite replaces the earlier observation and logs a warning.
	DuplicateOverwrite DuplicatePolicy = iota
	// DuplicateReject refuses the insert with a DUPLICATE_OBSERVATION error.
	DuplicateReject
)

// ParseDuplicatePolicy parses "overwrite" or "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite", "":
		return DuplicateOverwrite, nil
	case "reject":
		return DuplicateReject, nil
	default:
		return 0, fmt.Errorf("invalid duplicate policy %q: must be overwrite or reject", s)
	}
}

func (p DuplicatePolicy) String() string {
	if p == DuplicateReject {
		return "reject"
	}
	return "overwrite"
}

// ObservationSet holds at most one Observation per variable name.
//
// Insertion order is kept so iteration and String are deterministic; it
// carries no meaning for evaluation.
type ObservationSet struct {
	policy DuplicatePolicy
	byName map[string]*Observation
	order  []string
}

// ObservationSetOption configures NewObservationSet.
type ObservationSetOption func(*ObservationSet)

// WithDuplicatePolicy sets how repeated variables are handled.
// Default: DuplicateOverwrite.
func WithDuplicatePolicy(p DuplicatePolicy) ObservationSetOption {
	return func(s *ObservationSet) {
		s.policy = p
	}
}

// NewObservationSet creates an empty set.
func NewObservationSet(opts ...ObservationSetOption) *ObservationSet {
	s := &ObservationSet{byName: make(map[string]*Observation)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone returns a shallow copy of s with the same policy. Observations are
// shared; adding to the copy leaves s unchanged.
func (s *ObservationSet) Clone() *ObservationSet {
	if s == nil {
		return NewObservationSet()
	}
	return &ObservationSet{
		policy: s.policy,
		byName: maps.Clone(s.byName),
		order:  slices.Clone(s.order),
	}
}

// Add inserts o. A second observation of the same variable overwrites the
// first (keeping its position) or is rejected, per the set's policy.
func (s *ObservationSet) Add(o *Observation) error {
	if o == nil {
		return fmt.Errorf("add observation: nil observation")
	}
	name := o.Name()

	if existing, ok := s.byName[name]; ok {
		if s.policy == DuplicateReject {
			return &EvalError{
				Code:     ErrCodeDuplicate,
				Message:  fmt.Sprintf("set already holds %s", existing),
				Variable: name,
			}
		}
		slog.Warn("overwriting observation",
			"variable", name,
			"old", ir.FormatValue(existing.Value()),
			"new", ir.FormatValue(o.Value()),
		)
		s.byName[name] = o
		return nil
	}

	s.byName[name] = o
	s.order = append(s.order, name)
	return nil
}

// Get returns the observation of the named variable.
func (s *ObservationSet) Get(name string) (*Observation, bool) {
	if s == nil {
		return nil, false
	}
	o, ok := s.byName[ir.NormalizeName(name)]
	return o, ok
}

// Len returns the number of observed variables.
func (s *ObservationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Names returns the observed variable names in insertion order.
func (s *ObservationSet) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Observations returns the observations in insertion order. A nil set has
// none.
func (s *ObservationSet) Observations() []*Observation {
	if s == nil {
		return nil
	}
	out := make([]*Observation, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// comparable returns the observations a condition on name may look at.
// A nil set has none.
func (s *ObservationSet) comparable(name string) []*Observation {
	if s == nil {
		return nil
	}
	if o, ok := s.byName[name]; ok {
		return []*Observation{o}
	}
	return nil
}

func (s *ObservationSet) String() string {
	if s == nil {
		return "{}"
	}
	parts := make([]string, 0, s.Len())
	for _, o := range s.Observations() {
		parts = append(parts, o.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ObservationsFromMap builds a set from a name → value literal such as
// {"x": 7, "has_dog": true}.
//
// Names unknown to reg are interned as float, or bool for a bool value. Entries
// are added in name order.
func ObservationsFromMap(reg *Registry, values map[string]any, opts ...ObservationSetOption) (*ObservationSet, error) {
	set := NewObservationSet(opts...)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value, err := ir.ValueFromAny(values[name])
		if err != nil {
			return nil, NewKindMismatchError(name, err)
		}
		v, err := reg.Resolve(ByName(name), ir.NameKind(value))
		if err != nil {
			return nil, err
		}
		o, err := NewObservation(v, value)
		if err != nil {
			return nil, err
		}
		if err := set.Add(o); err != nil {
			return nil, err
		}
	}
	return set, nil
}
