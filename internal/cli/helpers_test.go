package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/testutil"
)

const petsCUE = `
package rules

table: pets: {
	variables: {
		has_dog:      {kind: "bool"}
		cat_fraction: {kind: "float", unit: "percent"}
		monkey_count: {kind: "int"}
	}
	rules: [
		{name: "calm", when: [
			{var: "has_dog", op: "EQ", value: true},
			{var: "cat_fraction", op: "IN", value: -20, value1: 0},
		]},
		{name: "zoo", when: [
			{var: "has_dog", op: "EQ", value: true},
			{var: "monkey_count", op: "GT", value: 50},
		]},
	]
}
`

const levelsCUE = `
package rules

table: levels: {
	variables: level: {kind: "float", unit: "m"}
	rules: [
		{name: "rising", when: [{var: "level", op: "TLT", value: 6, range: 3}]},
		{name: "high", when: [{var: "level", op: "GT", value: 6}]},
	]
}
`

// writeRules writes each content to its own .cue file in a fresh directory.
func writeRules(t *testing.T, contents ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, c := range contents {
		path := filepath.Join(dir, "rules"+string(rune('a'+i))+".cue")
		require.NoError(t, os.WriteFile(path, []byte(c), 0o644))
	}
	return dir
}

// testRootOpts returns default options with deterministic trace IDs.
func testRootOpts(format string) *RootOptions {
	opts := NewRootOptions()
	opts.Format = format
	opts.TraceIDs = testutil.NewFixedIDs("")
	return opts
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
