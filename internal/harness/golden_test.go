package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/store"
)

func TestRunWithGolden_Orders(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/orders.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.Steps = append(result.Steps,
		StepResult{
			Name: "ok", Dialect: "sqlite", SQL: "SELECT 1", Bindings: []string{"p"},
			Cacheable: true, CacheHit: true,
			Rows: []store.Row{{ir.IRInt(1), ir.IRNull{}, ir.IRString("<x>")}},
		},
		StepResult{Name: "bad", Dialect: "postgres", Err: "UNSUPPORTED_SHAPE: no"},
	)

	data, err := Snapshot("demo", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"demo","steps":[`+
			`{"bindings":["p"],"cache_hit":true,"cacheable":true,"dialect":"sqlite","name":"ok","rows":[[1,null,"<x>"]],"sql":"SELECT 1"},`+
			`{"dialect":"postgres","error":"UNSUPPORTED_SHAPE: no","name":"bad"}]}`+"\n",
		string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/orders.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
