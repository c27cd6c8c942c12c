package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/satset/internal/ir"
)

// Variable identifies a named, typed quantity.
//
// Two Variables are the same entity iff their names are equal. Unit is
// informational only.
type Variable struct {
	Name string
	Unit string
	Kind ir.Kind
}

// NewVariable creates a Variable with an NFC-normalized name.
func NewVariable(name, unit string, kind ir.Kind) (Variable, error) {
	name = ir.NormalizeName(strings.TrimSpace(name))
	if name == "" {
		return Variable{}, &EvalError{Code: ErrCodeInvalidVariable, Message: "variable name is required"}
	}
	if !kind.Valid() {
		return Variable{}, &EvalError{
			Code:     ErrCodeKindMismatch,
			Message:  fmt.Sprintf("invalid kind %d", int(kind)),
			Variable: name,
		}
	}
	return Variable{Name: name, Unit: unit, Kind: kind}, nil
}

// VariableFromSpec converts a rule-table declaration.
func VariableFromSpec(spec ir.VariableSpec) (Variable, error) {
	return NewVariable(spec.Name, spec.Unit, spec.Kind)
}

// Spec returns the rule-table form of v.
func (v Variable) Spec() ir.VariableSpec {
	return ir.VariableSpec{Name: v.Name, Unit: v.Unit, Kind: v.Kind}
}

func (v Variable) String() string {
	return fmt.Sprintf("<var: %s>", v.Name)
}

// VariableRef is how callers point at a variable when building conditions
// and observations: either by name or by an already-built handle. It is
// resolved once, at construction time.
type VariableRef struct {
	name   string
	handle *Variable
}

// ByName refers to a variable by name only.
func ByName(name string) VariableRef {
	return VariableRef{name: name}
}

// ByHandle refers to a fully specified variable.
func ByHandle(v Variable) VariableRef {
	return VariableRef{name: v.Name, handle: &v}
}

// Name returns the referenced name.
func (r VariableRef) Name() string {
	return r.name
}

// Registry is an explicit create-or-get table of variables keyed by name.
//
// A Registry is owned and passed around by the caller; there is no
// process-wide instance. Repeated references to the same name through one
// Registry resolve to the same Variable.
//
// A nil *Registry is valid: every reference then resolves to a fresh
// Variable, which still compares equal by name.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	vars map[string]Variable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{vars: make(map[string]Variable)}
}

// Declare registers v.
//
// Re-declaring a name with the same kind returns the existing Variable
// (the first unit wins). A different kind is a KIND_MISMATCH error.
func (r *Registry) Declare(v Variable) (Variable, error) {
	v, err := NewVariable(v.Name, v.Unit, v.Kind)
	if err != nil {
		return Variable{}, err
	}
	if r == nil {
		return v, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.vars[v.Name]; ok {
		if existing.Kind != v.Kind {
			return Variable{}, &EvalError{
				Code:     ErrCodeKindMismatch,
				Message:  fmt.Sprintf("variable already declared as %s, cannot redeclare as %s", existing.Kind, v.Kind),
				Variable: v.Name,
			}
		}
		return existing, nil
	}
	r.vars[v.Name] = v
	return v, nil
}

// Intern returns the variable registered under name, creating it with kind
// if it does not exist yet. An existing entry wins over kind.
func (r *Registry) Intern(name string, kind ir.Kind) (Variable, error) {
	v, err := NewVariable(name, "", kind)
	if err != nil {
		return Variable{}, err
	}
	if r == nil {
		return v, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.vars[v.Name]; ok {
		return existing, nil
	}
	r.vars[v.Name] = v
	return v, nil
}

// Lookup returns the variable registered under name.
func (r *Registry) Lookup(name string) (Variable, bool) {
	if r == nil {
		return Variable{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vars[ir.NormalizeName(strings.TrimSpace(name))]
	return v, ok
}

// Variables returns all registered variables sorted by name.
func (r *Registry) Variables() []Variable {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Variable, 0, len(r.vars))
	for _, v := range r.vars {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Variable) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of registered variables.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vars)
}

// Resolve turns a reference into a Variable.
//
// A handle is declared (so conflicting kinds are caught); a bare name is
// interned with hint as the kind used if the name is new.
func (r *Registry) Resolve(ref VariableRef, hint ir.Kind) (Variable, error) {
	if ref.handle != nil {
		return r.Declare(*ref.handle)
	}
	return r.Intern(ref.name, hint)
}
