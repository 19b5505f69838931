package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mockset/internal/canon"
)

// Snapshot is the golden form of a scenario's output.
func Snapshot(name string, result *Result) map[string]any {
	stack := make([]any, len(result.Stack))
	for i, s := range result.Stack {
		stack[i] = s
	}
	snap := map[string]any{
		"scenario": name,
		"stack":    stack,
	}
	if result.Tables != nil {
		snap["tables"] = result.Tables.Document()
	}
	if len(result.Insufficient) > 0 {
		errs := make([]any, len(result.Insufficient))
		for i, e := range result.Insufficient {
			errs[i] = map[string]any{
				"overlay":   e.Overlay,
				"table":     e.Table,
				"field":     e.Field,
				"needed":    e.Needed,
				"available": e.Available,
			}
		}
		snap["insufficient"] = errs
	}
	return snap
}

// RunWithGolden executes a scenario and compares the canonical JSON of its
// output against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := canon.MarshalCanonical(Snapshot(name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
