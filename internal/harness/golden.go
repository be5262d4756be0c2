package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stockpile/internal/layout"
	"github.com/roach88/stockpile/internal/storage"
)

// TraceSnapshot is what golden files record: the trace and the final
// contents of every storage.
type TraceSnapshot struct {
	ScenarioName string                          `json:"scenario_name"`
	Trace        []TraceEvent                    `json:"trace"`
	State        map[string][]storage.SlotRecord `json:"state"`
}

// MarshalSnapshot renders a result as indented JSON with a trailing
// newline. Map keys are sorted, so the output is stable.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, catalog *layout.Catalog, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(catalog, scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
