package store

import (
	"fmt"

	"github.com/roach88/satset/internal/ir"
)

// marshalValue converts a reading to JSON TEXT for storage.
// Floats keep a decimal point so the kind survives the round trip.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses JSON TEXT back into a reading.
func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value %q: %w", data, err)
	}
	return v, nil
}

// unmarshalKind parses the kind column.
func unmarshalKind(data string) (ir.Kind, error) {
	var k ir.Kind
	if err := k.UnmarshalText([]byte(data)); err != nil {
		return 0, fmt.Errorf("unmarshal kind: %w", err)
	}
	return k, nil
}
