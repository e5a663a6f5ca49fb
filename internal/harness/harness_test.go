package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/store"
)

const flagsTables = `
name: flags
description: flags
tables:
  - name: t
    columns:
      - {name: a, type: int, nullable: true}
      - {name: b, type: int}
seed:
  - table: t
    combinations: {int: [0, 1]}
`

func run(t *testing.T, src string) *Result {
	t.Helper()
	s, err := ParseScenario([]byte(src), "")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestRun_Combinations(t *testing.T) {
	result := run(t, flagsTables+`
steps:
  - name: all
    query: {select: {project: [t.a, t.b], from: [t]}}
    expect: {row_count: 6}
  - name: a_is_b
    query: {select: {project: [t.a, t.b], from: [t], where: "(= t.a t.b)"}}
    expect:
      rows: [[0, 0], [1, 1]]
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Steps, 2)
	assert.Len(t, result.Steps[0].Rows, 6)
}

func TestRun_NullSemantics(t *testing.T) {
	src := flagsTables + `
steps:
  - name: a_not_one
    query: {select: {project: [t.a, t.b], from: [t], where: "(<> t.a 1)"}}
    expect:
      rows: [[0, 0], [0, 1], [null, 0], [null, 1]]
  - name: raw
    no_normalize: true
    query: {select: {project: [t.a, t.b], from: [t], where: "(<> t.a 1)"}}
    expect:
      sql_contains: ['"t"."a" <> 1']
      rows: [[0, 0], [0, 1]]
`
	result := run(t, src)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotContains(t, result.Steps[1].SQL, "IS NULL")
}

func TestRun_RelationalNulls(t *testing.T) {
	result := run(t, flagsTables+`
relational_nulls: true
steps:
  - name: a_not_one
    query: {select: {project: [t.a], from: [t], where: "(<> t.a 1)"}}
    expect:
      row_count: 2
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotContains(t, result.Steps[0].SQL, "IS NULL")
}

func TestRun_ReportsFailures(t *testing.T) {
	result := run(t, flagsTables+`
steps:
  - name: wrong_sql
    query: {select: {project: [t.a], from: [t]}}
    expect: {sql: "SELECT 1", cacheable: false, cache_hit: true, bindings: [x]}
  - name: wrong_rows
    query: {select: {project: [t.b], from: [t], where: "(= t.b 1)"}}
    expect: {rows: [[2]], row_count: 1}
  - name: missing_fragment
    query: {select: {project: [t.a], from: [t]}}
    expect: {sql_contains: [WHERE]}
  - name: unexpected_error
    query: {select: {project: [t.zzz], from: [t]}}
  - name: wrong_error
    query: {select: {project: [t.zzz], from: [t]}}
    expect: {error: SOMETHING_ELSE}
  - name: expected_error
    query: {select: {project: [t.a], from: [t]}}
    expect: {error: UNSUPPORTED_SHAPE}
  - name: undeclared_param
    query: {select: {project: [t.a], from: [t]}}
    params: {p: 1}
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 7)

	errorsFor := func(step string) []string {
		var out []string
		for _, e := range result.Errors {
			if strings.HasPrefix(e, `step "`+step+`":`) {
				out = append(out, e)
			}
		}
		return out
	}
	assert.Len(t, errorsFor("wrong_sql"), 4)
	assert.Len(t, errorsFor("wrong_rows"), 2)
	assert.Len(t, errorsFor("missing_fragment"), 1)
	assert.Len(t, errorsFor("unexpected_error"), 1)
	assert.Len(t, errorsFor("wrong_error"), 1)
	assert.Len(t, errorsFor("expected_error"), 1)
	assert.Len(t, errorsFor("undeclared_param"), 1)

	assert.NotEmpty(t, result.Steps[3].Err)
	assert.Contains(t, result.Steps[6].Err, `"p" is not declared`)
}

func TestRun_BrokenScenario(t *testing.T) {
	t.Run("unknown seed table", func(t *testing.T) {
		s, err := ParseScenario([]byte(`
name: x
description: y
seed: [{table: nope, rows: [[1]]}]
steps: [{name: a, query: {select: {from: [t]}}}]
`), "")
		require.NoError(t, err)
		_, err = Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown table "nope"`)
	})

	t.Run("bad row", func(t *testing.T) {
		s, err := ParseScenario([]byte(flagsTables+`
  - table: t
    rows: [[1]]
steps: [{name: a, query: {select: {from: [t]}}}]
`), "")
		require.NoError(t, err)
		_, err = Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to seed")
	})
}

func TestCheckRows(t *testing.T) {
	got := []store.Row{
		{ir.IRInt(2), ir.IRNull{}},
		{ir.IRInt(1), ir.MustIRDecimal("2.5")},
	}
	assert.NoError(t, checkRows([][]any{{1, 2.5}, {2, nil}}, false, got))
	assert.Error(t, checkRows([][]any{{1, 2.5}, {2, nil}}, true, got))
	assert.NoError(t, checkRows([][]any{{2, nil}, {1, 2.5}}, true, got))
	assert.NoError(t, checkRows([][]any{}, false, nil))

	err := checkRows([][]any{{3, nil}}, false, got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows mismatch")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   ir.IRValue
		want string
	}{
		{nil, "NULL"},
		{ir.IRNull{}, "NULL"},
		{ir.IRString("x"), "x"},
		{ir.IRInt(-4), "-4"},
		{ir.IRBool(true), "true"},
		{ir.MustIRDecimal("1.50"), "1.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}
