package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/ir"
)

func TestCompileText(t *testing.T) {
	dir := writeRules(t, petsCUE, levelsCUE)

	out, err := execute(t, NewCompileCommand(testRootOpts("text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 rule table(s)")
	assert.Contains(t, out, "pets: 3 variable(s), 2 rule(s) [")
	assert.Contains(t, out, "levels: 1 variable(s), 2 rule(s) [")
}

func TestCompileJSON(t *testing.T) {
	dir := writeRules(t, petsCUE)

	out, err := execute(t, NewCompileCommand(testRootOpts("json")), dir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Tables, 1)

	table := resp.Data.Tables[0]
	assert.Equal(t, "pets", table.Name)
	assert.Equal(t, []ir.VariableSpec{
		{Name: "has_dog", Kind: ir.KindBool},
		{Name: "cat_fraction", Unit: "percent", Kind: ir.KindFloat},
		{Name: "monkey_count", Kind: ir.KindInt},
	}, table.Variables)
	assert.Equal(t, ir.Int(-20), table.Rules[0].Conditions[1].Value)

	want, err := ir.TableHash(table.RuleTable)
	require.NoError(t, err)
	assert.Equal(t, want, table.Hash)
	assert.Len(t, table.Hash, 64)
}

func TestCompileHashStable(t *testing.T) {
	hashOf := func(content string) string {
		out, err := execute(t, NewCompileCommand(testRootOpts("json")), writeRules(t, content))
		require.NoError(t, err)
		var resp struct {
			Data CompilationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Tables[0].Hash
	}

	reordered := `
package rules

table: pets: {
	rules: [
		{name: "calm", when: [
			{op: "EQ", var: "has_dog", value: true},
			{var: "cat_fraction", value1: 0, op: "IN", value: -20},
		]},
		{name: "zoo", when: [
			{var: "has_dog", op: "EQ", value: true},
			{var: "monkey_count", op: "GT", value: 50},
		]},
	]
	variables: {
		has_dog:      {kind: "bool"}
		cat_fraction: {unit: "percent", kind: "float"}
		monkey_count: {kind: "int"}
	}
}
`
	assert.Equal(t, hashOf(petsCUE), hashOf(reordered))
}

func TestCompileOutputFile(t *testing.T) {
	dir := writeRules(t, petsCUE)
	outFile := filepath.Join(t.TempDir(), "ir.json")

	out, err := execute(t, NewCompileCommand(testRootOpts("text")), dir, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote IR to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Tables, 1)
	assert.Equal(t, "pets", result.Tables[0].Name)
}

func TestCompileInvalidTable(t *testing.T) {
	dir := writeRules(t, invalidCUE)

	out, err := execute(t, NewCompileCommand(testRootOpts("text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 4 error(s)")
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, compiler.ErrUnsupportedOperator)
}

func TestCompileInvalidTableJSON(t *testing.T) {
	dir := writeRules(t, invalidCUE)

	out, err := execute(t, NewCompileCommand(testRootOpts("json")), dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Error  *CLIError  `json:"error"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, compiler.ErrUnsupportedOperator, resp.Error.Code)
	assert.Len(t, resp.Data, 4)
}

func TestCompileMissingDirectory(t *testing.T) {
	out, err := execute(t, NewCompileCommand(testRootOpts("text")), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"variables.x.kind", compiler.ErrUnknownKind},
		{"rules[0].name", compiler.ErrEmptyName},
		{"rules[0].when[1].var", compiler.ErrEmptyName},
		{"rules[0].when[1].op", compiler.ErrUnsupportedOperator},
		{"rules[0].when[1].range", compiler.ErrInvalidBounds},
		{"rules[0].when[1].value", compiler.ErrThresholdKind},
		{"rules", compiler.ErrRuleNoCondition},
		{"cue", ErrCodeBuildFailed},
		{"something", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
