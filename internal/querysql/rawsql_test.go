package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

func TestCheckComposable(t *testing.T) {
	tests := []struct {
		sql string
		ok  bool
	}{
		{"SELECT * FROM t", true},
		{"select 1", true},
		{"  \n\tSELECT 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"-- leading\nSELECT 1", true},
		{"/* block */ SELECT 1", true},
		{"/* a */ -- b\n /* c */SELECT 1", true},
		{"SELECT/* no space */1", true},
		{"SELECT--x\n1", true},
		{"SELECTED", false},
		{"SELECT", false},
		{"EXEC dbo.Orders", false},
		{"INSERT INTO t VALUES (1)", false},
		{"/* unterminated SELECT 1", false},
		{"-- only a comment", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			err := CheckComposable(tt.sql)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, sqlerr.IsUnsafeRawSQL(err))
		})
	}
}

func TestSubstituteArgs(t *testing.T) {
	args := []queryir.Expression{intLit(7), f.Parameter("name", stringType)}
	tests := []struct {
		sql   string
		want  string
		bound []string
		err   string
	}{
		{sql: "SELECT * FROM t WHERE a = {0} AND s = {1}", want: "SELECT * FROM t WHERE a = 7 AND s = @name", bound: []string{"name"}},
		{sql: "SELECT {1}, {1}", want: "SELECT @name, @name", bound: []string{"name"}},
		{sql: "SELECT '{{0}}'", want: "SELECT '{0}'", bound: []string{"name"}},
		{sql: "SELECT {2}", err: "has no argument"},
		{sql: "SELECT {x}", err: "bad placeholder"},
		{sql: "SELECT {0", err: "unterminated placeholder"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			b := &commandBuilder{d: Standard{}, sb: &strings.Builder{}}
			got, err := substituteArgs(b, &queryir.FromSQL{SQL: tt.sql, Args: args, Alias: "r"})
			if tt.err != "" {
				require.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.bound, (&Command{Bindings: b.bindings}).BindingNames())
		})
	}
}
