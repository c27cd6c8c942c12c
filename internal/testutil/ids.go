package testutil

import "fmt"

// FixedIDs hands out predictable trace IDs in place of random UUIDs.
//
// IDs look like "test-trace-0001", numbered from 1 in call order, so golden
// output that contains trace IDs stays byte-identical across runs.
//
// Not safe for concurrent use.
type FixedIDs struct {
	prefix string
	n      int
}

// NewFixedIDs creates a generator. An empty prefix means "test-trace".
func NewFixedIDs(prefix string) *FixedIDs {
	if prefix == "" {
		prefix = "test-trace"
	}
	return &FixedIDs{prefix: prefix}
}

// Next returns the next ID.
func (g *FixedIDs) Next() string {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
