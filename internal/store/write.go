package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/satset/internal/ir"
)

// WriteVariable declares a variable.
// Uses ON CONFLICT(name) DO NOTHING for idempotency: re-declaring with the
// same kind is a no-op and the first unit wins. Re-declaring with another
// kind is an error.
func (s *Store) WriteVariable(ctx context.Context, v ir.VariableSpec) error {
	name := ir.NormalizeName(strings.TrimSpace(v.Name))
	if name == "" {
		return fmt.Errorf("write variable: name is required")
	}
	kind, err := v.Kind.MarshalText()
	if err != nil {
		return fmt.Errorf("write variable %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variables (name, unit, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, v.Unit, string(kind))
	if err != nil {
		return fmt.Errorf("write variable %s: %w", name, err)
	}

	existing, err := s.ReadVariable(ctx, name)
	if err != nil {
		return fmt.Errorf("write variable %s: %w", name, err)
	}
	if existing.Kind != v.Kind {
		return fmt.Errorf("write variable %s: already declared as %s, cannot redeclare as %s",
			name, existing.Kind, v.Kind)
	}
	return nil
}

// WriteReading appends a reading of the named variable and returns its seq.
//
// The value is coerced to the variable's declared kind. A variable that was
// never declared is declared on the fly as float, or bool for a bool value.
func (s *Store) WriteReading(ctx context.Context, name string, value ir.Value) (int64, error) {
	name = ir.NormalizeName(strings.TrimSpace(name))
	if value == nil {
		return 0, fmt.Errorf("write reading %s: value is required", name)
	}

	v, err := s.ReadVariable(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		v = ir.VariableSpec{Name: name, Kind: ir.NameKind(value)}
		if err := s.WriteVariable(ctx, v); err != nil {
			return 0, fmt.Errorf("write reading: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("write reading %s: %w", name, err)
	}

	coerced, err := ir.Coerce(value, v.Kind)
	if err != nil {
		return 0, fmt.Errorf("write reading %s: %w", name, err)
	}
	valueJSON, err := marshalValue(coerced)
	if err != nil {
		return 0, fmt.Errorf("write reading %s: %w", name, err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (variable, value)
		VALUES (?, ?)
	`, name, valueJSON)
	if err != nil {
		return 0, fmt.Errorf("write reading %s: %w", name, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write reading %s: get seq: %w", name, err)
	}
	return seq, nil
}
