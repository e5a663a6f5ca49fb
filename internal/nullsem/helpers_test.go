package nullsem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

var (
	f          = queryir.DefaultFactory()
	intType    = typemap.New("int", typemap.KindInt)
	stringType = typemap.New("varchar(max)", typemap.KindString)
	boolType   = f.BoolMapping()
)

// Columns of table t: a and c are nullable, b and d are not.
func nullableCol(name string) *queryir.Column { return f.Column("t", name, true, intType) }
func col(name string) *queryir.Column         { return f.Column("t", name, false, intType) }
func boolCol(name string, nullable bool) *queryir.Column {
	return f.Column("t", name, nullable, boolType)
}
func intConst(n int64) *queryir.Constant { return f.Constant(ir.IRInt(n), intType) }

var (
	a = nullableCol("a")
	b = col("b")
	c = nullableCol("c")
	d = col("d")
)

// where builds SELECT t.b FROM t AS t WHERE pred.
func where(pred queryir.Expression) *queryir.Select {
	return &queryir.Select{
		Projection: []queryir.Projection{{Expr: col("id")}},
		Tables:     []queryir.TableSource{&queryir.Table{Name: "t", Alias: "t"}},
		Predicate:  pred,
	}
}

// project builds SELECT expr AS v FROM t AS t.
func project(expr queryir.Expression) *queryir.Select {
	return &queryir.Select{
		Projection: []queryir.Projection{{Expr: expr, Alias: "v"}},
		Tables:     []queryir.TableSource{&queryir.Table{Name: "t", Alias: "t"}},
	}
}

func normalize(t *testing.T, stmt queryir.Statement, params Parameters, opts ...Option) *Result {
	t.Helper()
	res, err := New(opts...).Normalize(stmt, params)
	require.NoError(t, err)
	return res
}

// normalizedPredicate returns the WHERE clause after normalizing where(pred).
func normalizedPredicate(t *testing.T, pred queryir.Expression, opts ...Option) queryir.Expression {
	t.Helper()
	res := normalize(t, where(pred), Parameters{}, opts...)
	return res.Statement.(*queryir.Select).Predicate
}

// normalizedValue returns the projected expression after normalizing
// project(expr).
func normalizedValue(t *testing.T, expr queryir.Expression, opts ...Option) queryir.Expression {
	t.Helper()
	res := normalize(t, project(expr), Parameters{}, opts...)
	return res.Statement.(*queryir.Select).Projection[0].Expr
}

func requireTree(t *testing.T, want, got queryir.Expression) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s\nwant: %s\ngot:  %s", diff, render(want), render(got))
	}
}

// render prints a tree in SQL-like infix form for failure messages.
func render(e queryir.Expression) string {
	switch x := e.(type) {
	case nil:
		return "<nil>"
	case *queryir.Column:
		return x.Table + "." + x.Name
	case *queryir.Unary:
		switch x.Op {
		case queryir.OpIsNull, queryir.OpIsNotNull:
			return render(x.Operand) + " " + x.Op.String()
		}
		return x.Op.String() + " " + render(x.Operand)
	case *queryir.Binary:
		return "(" + render(x.Left) + " " + x.Op.String() + " " + render(x.Right) + ")"
	}
	return queryir.Describe(e)
}
