package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/satset/internal/ir"
)

// Reading is one stored value of a variable.
type Reading struct {
	Seq   int64
	Value ir.Value
}

// Series is the recent history of one variable, newest reading first.
type Series struct {
	Variable ir.VariableSpec
	Readings []Reading
}

// ReadVariable returns the declaration of the named variable.
// Returns sql.ErrNoRows (wrapped) if it was never declared.
func (s *Store) ReadVariable(ctx context.Context, name string) (ir.VariableSpec, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, unit, kind
		FROM variables
		WHERE name = ?
	`, name)

	var v ir.VariableSpec
	var kind string
	if err := row.Scan(&v.Name, &v.Unit, &kind); err != nil {
		return ir.VariableSpec{}, fmt.Errorf("read variable %s: %w", name, err)
	}
	k, err := unmarshalKind(kind)
	if err != nil {
		return ir.VariableSpec{}, err
	}
	v.Kind = k
	return v, nil
}

// ReadVariables returns every declared variable, ordered by name.
func (s *Store) ReadVariables(ctx context.Context) ([]ir.VariableSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, unit, kind
		FROM variables
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	vars := []ir.VariableSpec{}
	for rows.Next() {
		var v ir.VariableSpec
		var kind string
		if err := rows.Scan(&v.Name, &v.Unit, &kind); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		if v.Kind, err = unmarshalKind(kind); err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return vars, nil
}

// LatestReadings returns up to depth readings per variable, newest first.
// Variables without readings are omitted. Series are ordered by name.
func (s *Store) LatestReadings(ctx context.Context, depth int) ([]Series, error) {
	if depth < 1 {
		return nil, fmt.Errorf("latest readings: depth must be positive, got %d", depth)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.name, v.unit, v.kind, r.seq, r.value
		FROM (
			SELECT variable, seq, value,
				ROW_NUMBER() OVER (PARTITION BY variable ORDER BY seq DESC) AS rn
			FROM readings
		) r
		JOIN variables v ON v.name = r.variable
		WHERE r.rn <= ?
		ORDER BY v.name COLLATE BINARY ASC, r.seq DESC
	`, depth)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	series := []Series{}
	for rows.Next() {
		v, reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		if n := len(series); n == 0 || series[n-1].Variable.Name != v.Name {
			series = append(series, Series{Variable: v})
		}
		last := &series[len(series)-1]
		last.Readings = append(last.Readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return series, nil
}

// MaxSeq returns the highest reading seq, or 0 for an empty feed.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM readings`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanReading(rows *sql.Rows) (ir.VariableSpec, Reading, error) {
	var v ir.VariableSpec
	var r Reading
	var kind, valueJSON string

	if err := rows.Scan(&v.Name, &v.Unit, &kind, &r.Seq, &valueJSON); err != nil {
		return v, r, fmt.Errorf("scan reading: %w", err)
	}

	var err error
	if v.Kind, err = unmarshalKind(kind); err != nil {
		return v, r, err
	}
	if r.Value, err = unmarshalValue(valueJSON); err != nil {
		return v, r, err
	}
	return v, r, nil
}
