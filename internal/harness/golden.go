package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tabula/internal/value"
)

// Snapshot renders a scenario's trace as canonical JSON:
//
//	{"scenario_name":"...","trace":[{"seq":1,"op":"create",...},...]}
//
// The snapshot names no driver, so every driver shares one golden file.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make(value.List, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = event.Value()
	}
	return value.Canonical(value.RecordOf(
		value.F("scenario_name", value.Text(scenarioName)),
		value.F("trace", trace),
	))
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The result is returned so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario, factory Factory) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, factory)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
