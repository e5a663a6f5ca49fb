package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/relq/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison. Each
// step records its text, bindings and cacheability, the rows it returned
// when executed, or its error.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		m := map[string]any{
			"name":    s.Name,
			"dialect": s.Dialect,
		}
		if s.Err != "" {
			m["error"] = s.Err
			steps[i] = m
			continue
		}
		bindings := make([]any, len(s.Bindings))
		for j, b := range s.Bindings {
			bindings[j] = b
		}
		m["sql"] = s.SQL
		m["bindings"] = bindings
		m["cacheable"] = s.Cacheable
		if s.CacheHit {
			m["cache_hit"] = true
		}
		if s.Rows != nil {
			rows := make(ir.IRArray, len(s.Rows))
			for j, r := range s.Rows {
				rows[j] = ir.NewIRArray(r...)
			}
			m["rows"] = rows
		}
		steps[i] = m
	}

	data, err := ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"steps":    steps,
	})
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
//
// Returns error if scenario execution fails. Unmet step expectations fail
// the test through t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
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
