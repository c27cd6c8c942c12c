package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/satset/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustDeclare declares a variable or fails the test.
func mustDeclare(t *testing.T, s *Store, name string, kind ir.Kind) {
	t.Helper()
	if err := s.WriteVariable(context.Background(), ir.VariableSpec{Name: name, Kind: kind}); err != nil {
		t.Fatalf("WriteVariable(%s) failed: %v", name, err)
	}
}

// mustRecord appends a reading or fails the test.
func mustRecord(t *testing.T, s *Store, name string, value ir.Value) int64 {
	t.Helper()
	seq, err := s.WriteReading(context.Background(), name, value)
	if err != nil {
		t.Fatalf("WriteReading(%s) failed: %v", name, err)
	}
	return seq
}
