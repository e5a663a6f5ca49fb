package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/orders.yaml")
	require.NoError(t, err)

	assert.Equal(t, "orders", s.Name)
	assert.Equal(t, "sqlite", s.Dialect)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "catalog.cue")}, s.Catalog)
	require.Len(t, s.Seed, 1)
	assert.Len(t, s.Seed[0].Rows, 3)

	require.Len(t, s.Steps, 8)
	first := s.Steps[0]
	assert.Equal(t, filepath.Join("testdata", "scenarios", "by_customer.yaml"), first.QueryFile)
	assert.Equal(t, "sqlite", first.Dialect)
	require.NotNil(t, first.Expect.Cacheable)
	assert.True(t, *first.Expect.Cacheable)

	assert.Equal(t, "postgres", s.Steps[6].Dialect)
	assert.Equal(t, "UNSUPPORTED_SHAPE", s.Steps[7].Expect.Error)
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

const inlineStep = `
steps:
  - name: one
    query: {select: {project: [t.a], from: [t]}}
`

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"unknown field", "name: x\ndescription: y\nstep: []\n", "field step not found"},
		{"no name", "description: y" + inlineStep, "name is required"},
		{"no description", "name: x" + inlineStep, "description is required"},
		{"no steps", "name: x\ndescription: y\n", "steps list is required"},
		{"bad dialect", "name: x\ndescription: y\ndialect: oracle" + inlineStep, `unknown dialect "oracle"`},
		{"missing catalog", "name: x\ndescription: y\ncatalog: [nowhere.cue]" + inlineStep, "catalog file not found"},
		{"seed without table", "name: x\ndescription: y\nseed: [{rows: [[1]]}]" + inlineStep, "seed[0]: table is required"},
		{"seed with both", "name: x\ndescription: y\nseed: [{table: t, rows: [[1]], combinations: {int: [1]}}]" + inlineStep, "exactly one of rows and combinations"},
		{"step without name", "name: x\ndescription: y\nsteps: [{query: {select: {from: [t]}}}]", "steps[0]: name is required"},
		{"step without query", "name: x\ndescription: y\nsteps: [{name: a}]", "exactly one of query and query_file"},
		{
			"duplicate step",
			"name: x\ndescription: y\nsteps: [{name: a, query: {select: {from: [t]}}}, {name: a, query: {select: {from: [t]}}}]",
			`duplicate step name "a"`,
		},
		{
			"rows on postgres",
			"name: x\ndescription: y\ndialect: postgres\nsteps: [{name: a, query: {select: {from: [t]}}, expect: {row_count: 1}}]",
			"only be checked for the sqlite dialect",
		},
		{
			"error with sql",
			"name: x\ndescription: y\nsteps: [{name: a, query: {select: {from: [t]}}, expect: {error: E, sql: S}}]",
			"expect.error excludes sql and rows",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestParseScenario_Defaults(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: y\ndialect: SQLite3"+inlineStep), "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Dialect)
	assert.Equal(t, "sqlite", s.Steps[0].Dialect)
}

func TestParseScenario_ResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.cue"), []byte("table: t: column: a: int\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q.yaml"), []byte("select: {from: [t]}\n"), 0644))

	abs := filepath.Join(dir, "c.cue")
	s, err := ParseScenario([]byte(`
name: x
description: y
catalog: [c.cue, `+abs+`]
steps:
  - {name: a, query_file: q.yaml}
`), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{abs, abs}, s.Catalog)
	assert.Equal(t, filepath.Join(dir, "q.yaml"), s.Steps[0].QueryFile)
}
