package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/satset/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_ReopenKeepsReadings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	mustDeclare(t, s, "x", ir.KindInt)
	if _, err := s.WriteReading(ctx, "x", ir.Int(7)); err != nil {
		t.Fatalf("WriteReading() failed: %v", err)
	}
	s.Close()

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("MaxSeq() = %d after reopen, expected 1", seq)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/readings.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(context.Background(), tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("%s = %q, expected %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestWithBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "readings.db"), WithBusyTimeout(250*time.Millisecond))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	got, err := s.pragma(context.Background(), "busy_timeout")
	if err != nil {
		t.Fatal(err)
	}
	if got != "250" {
		t.Errorf("busy_timeout = %q, expected 250", got)
	}
}

func TestMigrations_SetUserVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	version, err := s.pragma(ctx, "user_version")
	if err != nil {
		t.Fatal(err)
	}
	if version != "1" || schemaVersion() != 1 {
		t.Errorf("user_version = %s, schemaVersion() = %d, expected 1", version, schemaVersion())
	}

	var name string
	err = s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_readings_variable_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("readings index not created: %v", err)
	}
}
