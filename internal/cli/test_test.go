package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petsScenario = `
name: pets-calm
table: pets
steps:
  - observe: {has_dog: true, cat_fraction: -10}
    expect:
      match: calm
      satisfiable: [calm, zoo]
`

const petsGolden = `scenario: pets-calm
table: pets (2 rules)
step 1 seq=1 {cat_fraction=-10, has_dog=true}
  match: calm
  satisfied: calm
  satisfiable: calm, zoo
PASS
`

const failingScenario = `
name: pets-wrong
table: pets
steps:
  - observe: {has_dog: false}
    expect: {match: calm}
`

const inlineScenario = `
name: inline
variables:
  - {name: x, kind: int}
rules:
  - name: big
    when:
      - {var: x, op: GT, value: 10}
steps:
  - observe: {x: 11}
    expect: {match: big}
`

// writeScenarios writes name → content files into a fresh directory.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(testRootOpts("text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}

func TestTestCommandNonExistentRulesDir(t *testing.T) {
	scenarios := writeScenarios(t, nil)

	_, err := execute(t, NewTestCommand(testRootOpts("text")), "/nonexistent/rules", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load rule tables")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	rules := writeRules(t, petsCUE)

	_, err := execute(t, NewTestCommand(testRootOpts("text")), rules, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	rules := writeRules(t, petsCUE)

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, writeScenarios(t, nil))
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	rules := writeRules(t, petsCUE)

	out, err := execute(t, NewTestCommand(testRootOpts("json")), rules, writeScenarios(t, nil))
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandPassing(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{
		"pets-calm.yaml":          petsScenario,
		"inline.yml":              inlineScenario,
		"golden/pets-calm.golden": petsGolden,
	})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pets-calm\n")
	assert.Contains(t, out, "✓ inline\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{
		"pets-calm.yaml":          petsScenario,
		"golden/pets-calm.golden": "scenario: pets-calm\nPASS\n",
	})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Golden file mismatch")
}

func TestTestCommandUpdate(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{"pets-calm.yaml": petsScenario})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pets-calm (golden updated)")

	data, err := os.ReadFile(filepath.Join(scenarios, "golden", "pets-calm.golden"))
	require.NoError(t, err)
	assert.Equal(t, petsGolden, string(data))

	// The regenerated golden file is accepted on the next run
	_, err = execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.NoError(t, err)
}

func TestTestCommandFailing(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{
		"pets-calm.yaml":  petsScenario,
		"pets-wrong.yaml": failingScenario,
	})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ pets-wrong\n  step 1: expected match calm, got none\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingJSON(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{"pets-wrong.yaml": failingScenario})

	out, err := execute(t, NewTestCommand(testRootOpts("json")), rules, scenarios)
	require.Error(t, err)

	var resp struct {
		Status  string     `json:"status"`
		Data    TestResult `json:"data"`
		Error   *CLIError  `json:"error"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, "test-trace-0001", resp.TraceID)
	assert.Equal(t, []ScenarioResult{{
		Name:   "pets-wrong",
		Pass:   false,
		Errors: []string{"step 1: expected match calm, got none"},
	}}, resp.Data.Scenarios)
}

func TestTestCommandFilter(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{
		"pets-calm.yaml":  petsScenario,
		"pets-wrong.yaml": failingScenario,
		"inline.yaml":     inlineScenario,
	})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios, "--filter", "*-calm")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandUnknownTable(t *testing.T) {
	rules := writeRules(t, levelsCUE)
	scenarios := writeScenarios(t, map[string]string{"pets-calm.yaml": petsScenario})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ pets-calm\n  Execution error:")
	assert.Contains(t, out, `table "pets" not found`)
}

func TestTestCommandLoadError(t *testing.T) {
	rules := writeRules(t, petsCUE)
	scenarios := writeScenarios(t, map[string]string{"typo.yaml": "name: x\ntable: pets\nstep: []\n"})

	out, err := execute(t, NewTestCommand(testRootOpts("text")), rules, scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ typo.yaml\n  Load error:")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "pets.golden"), goldenFilePath(filepath.Join("scenarios", "pets.yaml")))
}
