package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingScenario = `
name: wrong_count
description: "Expects more coal than the fuel slot can take"
storages:
  - name: furnace
    layout: furnace
flow:
  - op: insert
    storage: furnace
    group: fuel
    resource: coal
    amount: 40
    expect: 40
`

// copyScenario copies the smelt_batch scenario into a fresh directory.
func copyScenario(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosDir, "smelt_batch.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	writeFile(t, dir, "smelt_batch.yaml", string(data))
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestTestCommandNonExistentLayoutsDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/layouts", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "layouts directory not found")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandBadLayouts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", brokenCatalog)

	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load layouts")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), layoutsDir, t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandPassesWithGolden(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ smelt_batch")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := copyScenario(t)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ smelt_batch (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "smelt_batch.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "smelt_batch.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// a second run compares against what was just written
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir)
	require.NoError(t, err, out)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenario(t)
	writeFile(t, dir, filepath.Join("golden", "smelt_batch.golden"), "{}\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ smelt_batch")
	assert.Contains(t, out, "golden file mismatch")
}

func TestTestCommandAssertionFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "flow[0] insert: moved 32, want 40")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandAssertionFailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), layoutsDir, dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := copyScenario(t)
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, dir, "--filter", "smelt_*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_count")
}

func TestTestCommandMetrics(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), layoutsDir, scenariosDir, "--metrics")
	require.NoError(t, err, out)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	var committed *MetricSample
	for i, s := range resp.Data.Metrics {
		if s.Name == "stockpile_storage_batches_committed_total" {
			committed = &resp.Data.Metrics[i]
		}
	}
	require.NotNil(t, committed, "metrics: %+v", resp.Data.Metrics)
	assert.Equal(t, map[string]string{"layout": "furnace"}, committed.Labels)
	assert.Equal(t, float64(3), committed.Value)
}

func TestTestCommandMetricsText(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), layoutsDir, scenariosDir, "--metrics")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Metrics:")
	assert.Contains(t, out, `stockpile_storage_batches_committed_total{layout="furnace"} 3`)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "")
	writeFile(t, dir, "b.yml", "")
	writeFile(t, dir, "nested/c.yaml", "")
	writeFile(t, dir, "golden/a.golden", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "smelt.golden"),
		goldenFilePath(filepath.Join("scenarios", "smelt.yaml")))
	assert.Equal(t,
		filepath.Join("a", "b", "golden", "move.golden"),
		goldenFilePath(filepath.Join("a", "b", "move.yml")))
}

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "", formatLabels(nil))
	assert.Equal(t, `{layout="chest",storage="x"}`, formatLabels(map[string]string{"storage": "x", "layout": "chest"}))
}
