package nullsem

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

func TestComparisonCompensation(t *testing.T) {
	tests := []struct {
		name      string
		input     queryir.Expression
		predicate queryir.Expression // normalized in WHERE
		value     queryir.Expression // normalized in the projection
	}{
		{
			name:      "equal, neither nullable",
			input:     f.Equal(b, d),
			predicate: f.Equal(b, d),
			value:     f.Equal(b, d),
		},
		{
			name:      "equal, left nullable",
			input:     f.Equal(a, b),
			predicate: f.Equal(a, b),
			value:     f.And(f.Equal(a, b), f.IsNotNull(a)),
		},
		{
			name:      "equal, right nullable",
			input:     f.Equal(b, a),
			predicate: f.Equal(b, a),
			value:     f.And(f.Equal(b, a), f.IsNotNull(a)),
		},
		{
			name:      "equal, both nullable",
			input:     f.Equal(a, c),
			predicate: f.Or(f.Equal(a, c), f.And(f.IsNull(a), f.IsNull(c))),
			value: f.Or(
				f.And(f.Equal(a, c), f.And(f.IsNotNull(a), f.IsNotNull(c))),
				f.And(f.IsNull(a), f.IsNull(c))),
		},
		{
			name:      "not equal, left nullable",
			input:     f.NotEqual(a, b),
			predicate: f.Or(f.NotEqual(a, b), f.IsNull(a)),
			value:     f.Or(f.NotEqual(a, b), f.IsNull(a)),
		},
		{
			name:  "not equal, both nullable",
			input: f.NotEqual(a, c),
			predicate: f.And(
				f.Or(f.NotEqual(a, c), f.Or(f.IsNull(a), f.IsNull(c))),
				f.Or(f.IsNotNull(a), f.IsNotNull(c))),
			value: f.And(
				f.Or(f.NotEqual(a, c), f.Or(f.IsNull(a), f.IsNull(c))),
				f.Or(f.IsNotNull(a), f.IsNotNull(c))),
		},
		{
			name:      "equal to null literal",
			input:     f.Equal(a, f.Null(intType)),
			predicate: f.IsNull(a),
			value:     f.IsNull(a),
		},
		{
			name:      "null literal not equal",
			input:     f.NotEqual(f.Null(intType), a),
			predicate: f.IsNotNull(a),
			value:     f.IsNotNull(a),
		},
		{
			name:      "non-nullable column equal to null",
			input:     f.Equal(b, f.Null(intType)),
			predicate: f.False(),
			value:     f.False(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireTree(t, tt.predicate, normalizedPredicate(t, tt.input))
			requireTree(t, tt.value, normalizedValue(t, tt.input))
		})
	}
}

func TestStructuralShortcuts(t *testing.T) {
	flag := boolCol("flag", false)
	other := boolCol("other", false)
	maybe := boolCol("maybe", true)

	tests := []struct {
		name  string
		input queryir.Expression
		want  queryir.Expression
	}{
		{"column equals itself", f.Equal(b, b), f.True()},
		{"nullable column equals itself", f.Equal(a, a), f.True()},
		{"column differs from itself", f.NotEqual(a, a), f.False()},
		{"equal to TRUE", f.Equal(flag, f.True()), flag},
		{"equal to FALSE", f.Equal(flag, f.False()), f.Not(flag)},
		{"TRUE not equal", f.NotEqual(f.True(), flag), f.Not(flag)},
		{"negations on both sides", f.Equal(f.Not(flag), f.Not(other)), f.Equal(flag, other)},
		{"negation on one side", f.Equal(f.Not(flag), other), f.NotEqual(flag, other)},
		{"negation of the same column", f.Equal(f.Not(flag), flag), f.False()},
		{"nullable negation of the same column", f.Equal(f.Not(maybe), maybe), f.IsNull(maybe)},
		{"nullable negation compared to itself", f.NotEqual(f.Not(maybe), f.Not(maybe)), f.False()},
		{"nullable negated operand",
			f.Equal(f.Not(maybe), other),
			f.And(f.NotEqual(maybe, other), f.IsNotNull(maybe))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireTree(t, tt.want, normalizedValue(t, tt.input))
		})
	}
}

func TestTruePredicateIsDropped(t *testing.T) {
	res := normalize(t, where(f.Equal(b, b)), Parameters{})
	sel := res.Statement.(*queryir.Select)
	assert.Nil(t, sel.Predicate)
	assert.True(t, res.Cacheable)
}

func TestUnchangedStatementIsReturnedAsIs(t *testing.T) {
	stmt := where(f.And(f.Equal(b, d), f.IsNotNull(a)))
	res := normalize(t, stmt, Parameters{})
	assert.Same(t, stmt, res.Statement)
}

func TestNullParameters(t *testing.T) {
	p := f.Parameter("p", intType)

	t.Run("null parameter becomes a probe", func(t *testing.T) {
		res := normalize(t, where(f.Equal(a, p)), Parameters{"p": ir.IRNull{}})
		requireTree(t, f.IsNull(a), res.Statement.(*queryir.Select).Predicate)
		assert.True(t, res.Cacheable)
	})

	t.Run("non-null parameter keeps the comparison", func(t *testing.T) {
		res := normalize(t, where(f.Equal(b, p)), Parameters{"p": ir.IRInt(3)})
		requireTree(t, f.Equal(b, p), res.Statement.(*queryir.Select).Predicate)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := New().Normalize(where(f.Equal(a, p)), Parameters{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parameter "p" has no value`)
	})
}

func TestNotPushdown(t *testing.T) {
	flag := boolCol("flag", false)

	tests := []struct {
		name  string
		input queryir.Expression
		want  queryir.Expression
	}{
		{"negated comparison", f.Not(f.Equal(b, d)), f.NotEqual(b, d)},
		{"double negation", f.Not(f.Not(flag)), flag},
		{"de morgan", f.Not(f.And(f.Equal(b, d), flag)), f.Or(f.NotEqual(b, d), f.Not(flag))},
		{"negated compensated comparison",
			f.Not(f.Equal(a, b)),
			f.Or(f.NotEqual(a, b), f.IsNull(a))},
		{"negated probe", f.Not(f.IsNull(a)), f.IsNotNull(a)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireTree(t, tt.want, normalizedValue(t, tt.input))
		})
	}
}

func TestPathFacts(t *testing.T) {
	tests := []struct {
		name  string
		input queryir.Expression
	}{
		{"AND after IS NOT NULL", f.And(f.IsNotNull(a), f.Equal(a, b))},
		{"OR after IS NULL", f.Or(f.IsNull(a), f.Equal(a, b))},
		{"CASE result under its test", f.Case(nil,
			[]queryir.CaseWhen{{Test: f.IsNotNull(a), Result: f.Equal(a, b)}},
			f.False())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireTree(t, tt.input, normalizedValue(t, tt.input))
		})
	}

	t.Run("facts end with the operand", func(t *testing.T) {
		// a is proven non-null only inside the left operand's AND.
		input := f.Or(f.And(f.IsNotNull(a), f.Equal(a, b)), f.Equal(a, d))
		want := f.Or(f.And(f.IsNotNull(a), f.Equal(a, b)), f.And(f.Equal(a, d), f.IsNotNull(a)))
		requireTree(t, want, normalizedValue(t, input))
	})

	t.Run("probe folds under a fact", func(t *testing.T) {
		less := f.Binary(queryir.OpLessThan, a, b)
		requireTree(t, less, normalizedPredicate(t, f.And(less, f.IsNotNull(a))))
	})
}

func TestCase(t *testing.T) {
	t.Run("false tests are dropped", func(t *testing.T) {
		input := f.Case(nil, []queryir.CaseWhen{
			{Test: f.False(), Result: intConst(1)},
			{Test: f.Equal(b, d), Result: intConst(2)},
		}, intConst(3))
		want := f.Case(nil, []queryir.CaseWhen{{Test: f.Equal(b, d), Result: intConst(2)}}, intConst(3))
		requireTree(t, want, normalizedValue(t, input))
	})

	t.Run("true test ends the case", func(t *testing.T) {
		input := f.Case(nil, []queryir.CaseWhen{
			{Test: f.False(), Result: intConst(1)},
			{Test: f.Equal(b, b), Result: intConst(2)},
			{Test: f.Equal(b, d), Result: intConst(3)},
		}, intConst(4))
		requireTree(t, intConst(2), normalizedValue(t, input))
	})

	t.Run("no branch left", func(t *testing.T) {
		input := f.Case(nil, []queryir.CaseWhen{{Test: f.False(), Result: intConst(1)}}, nil)
		requireTree(t, f.Null(intType), normalizedValue(t, input))
	})

	t.Run("tests are optimized", func(t *testing.T) {
		input := f.Case(nil, []queryir.CaseWhen{{Test: f.Equal(a, b), Result: intConst(1)}}, intConst(0))
		requireTree(t, input, normalizedValue(t, input))
	})
}

func TestFunctions(t *testing.T) {
	t.Run("coalesce with a non-null argument is not nullable", func(t *testing.T) {
		input := f.Equal(f.Coalesce(a, b), d)
		requireTree(t, input, normalizedValue(t, input))
	})

	t.Run("coalesce of nullable arguments is compensated", func(t *testing.T) {
		coalesce := f.Coalesce(a, c)
		want := f.And(f.Equal(coalesce, d), f.Or(f.IsNotNull(a), f.IsNotNull(c)))
		requireTree(t, want, normalizedValue(t, f.Equal(coalesce, d)))
	})

	t.Run("probe is pushed into propagating arguments", func(t *testing.T) {
		abs := f.Function("ABS", []queryir.Expression{a}, intType)
		requireTree(t, f.IsNull(a), normalizedValue(t, f.IsNull(abs)))
	})

	t.Run("probe stays on aggregates", func(t *testing.T) {
		agg := f.Function("MAX", []queryir.Expression{a}, intType)
		requireTree(t, f.IsNull(agg), normalizedValue(t, f.IsNull(agg)))
	})

	t.Run("sum is wrapped", func(t *testing.T) {
		sum := f.Function("SUM", []queryir.Expression{b}, intType)
		want := f.Coalesce(sum, f.Constant(ir.IRInt(0), intType))
		got := normalizedValue(t, sum)
		requireTree(t, want, got)
		requireTree(t, want, normalizedValue(t, got))
	})
}

func TestConcatenation(t *testing.T) {
	name := f.Column("t", "name", true, stringType)
	suffix := f.Constant(ir.IRString("!"), stringType)
	empty := f.Constant(ir.IRString(""), stringType)

	input := f.Binary(queryir.OpAdd, name, suffix)
	want := f.Binary(queryir.OpAdd, f.Coalesce(name, empty), suffix)
	requireTree(t, want, normalizedValue(t, input))

	input = f.Binary(queryir.OpAdd, suffix, f.Null(stringType))
	want = f.Binary(queryir.OpAdd, suffix, empty)
	requireTree(t, want, normalizedValue(t, input))
}

func TestLike(t *testing.T) {
	name := f.Column("t", "name", true, stringType)
	like := f.Like(name, f.Constant(ir.IRString("a%"), stringType), nil)

	requireTree(t, like, normalizedPredicate(t, like))
	requireTree(t, f.And(like, f.IsNotNull(name)), normalizedValue(t, like))
	requireTree(t, like, normalizedValue(t, like, WithRelationalNulls(true)))
}

func TestSubqueries(t *testing.T) {
	inner := &queryir.Select{
		Projection: []queryir.Projection{{Expr: f.Column("u", "x", false, intType)}},
		Tables:     []queryir.TableSource{&queryir.Table{Name: "u", Alias: "u"}},
	}

	t.Run("scalar subquery is nullable", func(t *testing.T) {
		sub := &queryir.ScalarSubquery{Subquery: inner, Mapping: intType}
		want := f.And(f.Equal(sub, b), f.IsNotNull(sub))
		requireTree(t, want, normalizedValue(t, f.Equal(sub, b)))
	})

	t.Run("exists over a false predicate", func(t *testing.T) {
		empty := inner.Clone()
		empty.Predicate = f.False()
		requireTree(t, f.False(), normalizedPredicate(t, f.Exists(empty, false)))

		res := normalize(t, where(f.Exists(empty, true)), Parameters{})
		assert.Nil(t, res.Statement.(*queryir.Select).Predicate)
	})

	t.Run("subquery clauses are normalized", func(t *testing.T) {
		filtered := inner.Clone()
		filtered.Predicate = f.Equal(f.Column("u", "y", true, intType), f.Null(intType))
		out := normalizedPredicate(t, f.Exists(filtered, false))
		exists, ok := out.(*queryir.Exists)
		require.True(t, ok)
		requireTree(t, f.IsNull(f.Column("u", "y", true, intType)), exists.Subquery.Predicate)
	})
}

func TestJoins(t *testing.T) {
	left := f.Column("t", "k", true, intType)
	right := f.Column("u", "k", true, intType)

	build := func(pred queryir.Expression) *queryir.Select {
		return &queryir.Select{
			Projection: []queryir.Projection{{Expr: col("id")}},
			Tables: []queryir.TableSource{
				&queryir.Table{Name: "t", Alias: "t"},
				&queryir.Join{Kind: queryir.JoinInner, Table: &queryir.Table{Name: "u", Alias: "u"}, Predicate: pred},
			},
		}
	}

	t.Run("nullable key equality is kept", func(t *testing.T) {
		stmt := build(f.Equal(left, right))
		res := normalize(t, stmt, Parameters{})
		assert.Same(t, stmt, res.Statement)
	})

	t.Run("key equal to itself stays unknown for nulls", func(t *testing.T) {
		stmt := build(f.Equal(left, left))
		res := normalize(t, stmt, Parameters{})
		join := res.Statement.(*queryir.Select).Tables[1].(*queryir.Join)
		requireTree(t, f.Equal(left, left), join.Predicate)
	})

	t.Run("true predicate becomes a cross join", func(t *testing.T) {
		res := normalize(t, build(f.True()), Parameters{})
		join := res.Statement.(*queryir.Select).Tables[1].(*queryir.Join)
		assert.Equal(t, queryir.JoinCross, join.Kind)
		assert.Nil(t, join.Predicate)
	})

	t.Run("non-key predicates are compensated", func(t *testing.T) {
		pred := f.And(f.Equal(left, right), f.NotEqual(left, b))
		res := normalize(t, build(pred), Parameters{})
		join := res.Statement.(*queryir.Select).Tables[1].(*queryir.Join)
		want := f.And(
			f.Or(f.Equal(left, right), f.And(f.IsNull(left), f.IsNull(right))),
			f.Or(f.NotEqual(left, b), f.IsNull(left)))
		requireTree(t, want, join.Predicate)
	})
}

func TestRelationalNulls(t *testing.T) {
	tests := []struct {
		name  string
		input queryir.Expression
		want  queryir.Expression
	}{
		{"equality kept", f.Equal(a, c), f.Equal(a, c)},
		{"inequality kept", f.NotEqual(a, b), f.NotEqual(a, b)},
		{"self comparison kept", f.Equal(a, a), f.Equal(a, a)},
		{"null literal still a probe", f.Equal(a, f.Null(intType)), f.IsNull(a)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireTree(t, tt.want, normalizedValue(t, tt.input, WithRelationalNulls(true)))
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	target := &queryir.Table{Name: "t", Alias: "t"}

	t.Run("delete", func(t *testing.T) {
		stmt := &queryir.Delete{Table: target, Select: &queryir.Select{
			Tables:    []queryir.TableSource{target},
			Predicate: f.Equal(a, f.Null(intType)),
		}}
		res := normalize(t, stmt, Parameters{})
		del, ok := res.Statement.(*queryir.Delete)
		require.True(t, ok)
		requireTree(t, f.IsNull(a), del.Select.Predicate)
		assert.Same(t, target, del.Table)
	})

	t.Run("update setters are value contexts", func(t *testing.T) {
		flag := boolCol("flag", false)
		stmt := &queryir.Update{
			Table:   target,
			Setters: []queryir.ColumnSetter{{Column: flag, Value: f.Equal(a, b)}},
			Select:  &queryir.Select{Tables: []queryir.TableSource{target}},
		}
		res := normalize(t, stmt, Parameters{})
		upd, ok := res.Statement.(*queryir.Update)
		require.True(t, ok)
		requireTree(t, f.And(f.Equal(a, b), f.IsNotNull(a)), upd.Setters[0].Value)
	})
}

func TestErrors(t *testing.T) {
	t.Run("missing mapping", func(t *testing.T) {
		untyped := &queryir.Binary{Op: queryir.OpEqual, Left: a, Right: b}
		_, err := New().Normalize(where(untyped), Parameters{})
		require.Error(t, err)
		assert.True(t, sqlerr.IsMissingTypeMapping(err))
	})

	t.Run("nil statement", func(t *testing.T) {
		_, err := New().Normalize(nil, Parameters{})
		require.Error(t, err)
	})
}

func TestExtension(t *testing.T) {
	var seen []string
	ext := ExtensionFunc(func(v Visitor, e queryir.Expression, optimize bool) (queryir.Expression, bool, bool) {
		fn, ok := e.(*queryir.Function)
		if !ok || fn.Name != "ALWAYS" {
			return nil, false, false
		}
		seen = append(seen, fn.Name)
		return v.Factory().True(), false, true
	})

	always := &queryir.Function{Name: "ALWAYS", Args: []queryir.Expression{a}, Mapping: boolType}
	res := normalize(t, where(always), Parameters{}, WithExtension(ext))
	assert.Nil(t, res.Statement.(*queryir.Select).Predicate)
	assert.Equal(t, []string{"ALWAYS"}, seen)
}

func TestNormalizeLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	normalize(t, where(f.Equal(a, b)), Parameters{}, WithLogger(logger))
	assert.Contains(t, buf.String(), `"msg":"statement normalized"`)
	assert.Contains(t, buf.String(), `"cacheable":true`)
}
