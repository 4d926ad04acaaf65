package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/value"
)

const scenarioDir = "testdata/scenarios"

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, name := range DriverNames() {
		factory := Drivers[name]
		t.Run(name, func(t *testing.T) {
			for _, s := range scenarios {
				t.Run(s.Name, func(t *testing.T) {
					result, err := RunWithGolden(t, s, factory)
					require.NoError(t, err)
					assert.True(t, result.Pass, "errors: %v", result.Errors)
				})
			}
		})
	}
}

func TestRun_DriversProduceIdenticalTraces(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "g_record_lifecycle.yaml"))
	require.NoError(t, err)

	var snapshots []string
	for _, name := range DriverNames() {
		result, err := Run(context.Background(), s, Drivers[name])
		require.NoError(t, err)
		snap, err := Snapshot(s.Name, result)
		require.NoError(t, err)
		snapshots = append(snapshots, string(snap))
	}
	require.Len(t, snapshots, 2)
	assert.Equal(t, snapshots[0], snapshots[1])
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "a_create_generated_id.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), s, Drivers["memory"])
	require.NoError(t, err)
	second, err := Run(context.Background(), s, Drivers["memory"])
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
description: every expectation is wrong
initial_data:
  t:
    - {id: 1, role: admin}
steps:
  - op: find
    object: t
    expect:
      ids: [2]
  - op: count
    object: t
    expect:
      count: 7
  - op: create
    object: t
    data: {id: 1}
  - op: find_one
    object: t
    id: 1
    expect:
      record: {role: user}
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Drivers["memory"])
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "step 1 (find t): expected ids [2], got [1]")
	assert.Contains(t, result.Errors[1], "expected count 7, got 1")
	assert.Contains(t, result.Errors[2], "unexpected error conflict")
	assert.Contains(t, result.Errors[3], `field "role": expected "user", got "admin"`)
	assert.Len(t, result.Trace, 4)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: missing_error
description: the update succeeds although an error is expected
initial_data:
  t:
    - {id: a}
steps:
  - op: update
    object: t
    id: a
    data: {x: 1}
    expect:
      error: not_found
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Drivers["memory"])
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error not_found, got ok")
}

func TestRun_BadInitialData(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_seed
description: seed records must be mappings
initial_data:
  t: [1, 2]
steps:
  - op: count
    object: t
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s, Drivers["memory"])
	assert.ErrorContains(t, err, "initial_data.t[0]")
}

func TestRun_DuplicateSeedFailsToOpen(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: dup_seed
description: duplicate seed ids make the driver unusable
initial_data:
  t:
    - {id: 1}
    - {id: 1}
steps:
  - op: count
    object: t
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s, Drivers["memory"])
	assert.ErrorContains(t, err, "failed to open driver")
}

func TestTraceEvent_Value(t *testing.T) {
	e := TraceEvent{Seq: 2, Op: OpDelete, Object: "t", ID: value.Int(1), Outcome: OutcomeOK, Result: value.Bool(true)}
	out, err := value.Canonical(e.Value())
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"object":"t","op":"delete","outcome":"ok","result":true,"seq":2}`, string(out))

	js, err := e.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(out), string(js))
}
