package nullsem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
)

func values(vs ...queryir.Expression) []queryir.Expression { return vs }

func TestInValues(t *testing.T) {
	one, two, null := intConst(1), intConst(2), f.Null(intType)

	tests := []struct {
		name      string
		input     queryir.Expression
		predicate queryir.Expression // nil when the WHERE is dropped
		value     queryir.Expression
	}{
		{
			name:      "empty list",
			input:     f.InValues(a, nil, false),
			predicate: f.False(),
			value:     f.False(),
		},
		{
			name:      "empty negated list",
			input:     f.InValues(a, nil, true),
			predicate: nil,
			value:     f.True(),
		},
		{
			name:      "single value",
			input:     f.InValues(b, values(one), false),
			predicate: f.Equal(b, one),
			value:     f.Equal(b, one),
		},
		{
			name:      "non-nullable item ignores null values",
			input:     f.InValues(b, values(one, null), false),
			predicate: f.Equal(b, one),
			value:     f.Equal(b, one),
		},
		{
			name:      "nullable item",
			input:     f.InValues(a, values(one, two), false),
			predicate: f.InValues(a, values(one, two), false),
			value:     f.And(f.InValues(a, values(one, two), false), f.IsNotNull(a)),
		},
		{
			name:      "nullable item, list with null",
			input:     f.InValues(a, values(one, two, null), false),
			predicate: f.Or(f.InValues(a, values(one, two), false), f.IsNull(a)),
			value:     f.Or(f.InValues(a, values(one, two), false), f.IsNull(a)),
		},
		{
			name:      "nullable item, negated",
			input:     f.InValues(a, values(one, two), true),
			predicate: f.Or(f.InValues(a, values(one, two), true), f.IsNull(a)),
			value:     f.Or(f.InValues(a, values(one, two), true), f.IsNull(a)),
		},
		{
			name:      "nullable item, negated list with null",
			input:     f.InValues(a, values(one, two, null), true),
			predicate: f.And(f.InValues(a, values(one, two), true), f.IsNotNull(a)),
			value:     f.And(f.InValues(a, values(one, two), true), f.IsNotNull(a)),
		},
		{
			name:      "only null",
			input:     f.InValues(a, values(null), false),
			predicate: f.IsNull(a),
			value:     f.IsNull(a),
		},
		{
			name:      "only null, negated",
			input:     f.InValues(a, values(null), true),
			predicate: f.IsNotNull(a),
			value:     f.IsNotNull(a),
		},
		{
			name:      "nullable column value is compared on its own",
			input:     f.InValues(b, values(one, a), false),
			predicate: f.Or(f.Equal(b, one), f.Equal(b, a)),
			value:     f.Or(f.Equal(b, one), f.And(f.Equal(b, a), f.IsNotNull(a))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := normalize(t, where(tt.input), Parameters{})
			predicate := res.Statement.(*queryir.Select).Predicate
			if tt.predicate == nil {
				assert.Nil(t, predicate)
			} else {
				requireTree(t, tt.predicate, predicate)
			}

			value := normalizedValue(t, tt.input)
			requireTree(t, tt.value, value)
			requireTree(t, value, normalizedValue(t, value))
		})
	}
}

func TestInValuesRelationalNulls(t *testing.T) {
	input := f.InValues(a, values(intConst(1), f.Null(intType)), false)
	requireTree(t, input, normalizedValue(t, input, WithRelationalNulls(true)))

	requireTree(t, f.False(), normalizedValue(t, f.InValues(a, nil, false), WithRelationalNulls(true)))
}

func TestInParameter(t *testing.T) {
	ids := f.Parameter("ids", intType)

	t.Run("list is expanded", func(t *testing.T) {
		params := Parameters{"ids": ir.IRArray{ir.IRInt(1), ir.IRNull{}, ir.IRInt(3)}}
		res := normalize(t, where(f.InParameter(b, ids, false)), params)

		want := f.InValues(b, values(f.Parameter("ids_0", intType), f.Parameter("ids_2", intType)), false)
		requireTree(t, want, res.Statement.(*queryir.Select).Predicate)
		assert.False(t, res.Cacheable)
		assert.Equal(t, []string{"ids", "ids_0", "ids_2"}, res.Parameters.Names())
		assert.Equal(t, ir.IRInt(3), res.Parameters["ids_2"])
	})

	t.Run("null element compensates a nullable item", func(t *testing.T) {
		params := Parameters{"ids": ir.IRArray{ir.IRInt(1), ir.IRNull{}}}
		res := normalize(t, where(f.InParameter(a, ids, false)), params)

		want := f.Or(f.Equal(a, f.Parameter("ids_0", intType)), f.IsNull(a))
		requireTree(t, want, res.Statement.(*queryir.Select).Predicate)
	})

	t.Run("synthesized names avoid bound names", func(t *testing.T) {
		params := Parameters{"ids": ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, "ids_0": ir.IRInt(9)}
		res := normalize(t, where(f.InParameter(b, ids, false)), params)

		want := f.InValues(b, values(f.Parameter("ids_0_", intType), f.Parameter("ids_1", intType)), false)
		requireTree(t, want, res.Statement.(*queryir.Select).Predicate)
		assert.Equal(t, ir.IRInt(9), res.Parameters["ids_0"])
		assert.Equal(t, ir.IRInt(1), res.Parameters["ids_0_"])
	})

	t.Run("null list is empty", func(t *testing.T) {
		res := normalize(t, where(f.InParameter(b, ids, false)), Parameters{"ids": ir.IRNull{}})
		requireTree(t, f.False(), res.Statement.(*queryir.Select).Predicate)
		assert.False(t, res.Cacheable)
	})

	t.Run("input parameters are not modified", func(t *testing.T) {
		params := Parameters{"ids": ir.IRArray{ir.IRInt(1), ir.IRInt(2)}}
		normalize(t, where(f.InParameter(b, ids, false)), params)
		assert.Len(t, params, 1)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := New().Normalize(where(f.InParameter(b, ids, false)), Parameters{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parameter "ids" has no value`)

		_, err = New().Normalize(where(f.InParameter(b, ids, false)), Parameters{"ids": ir.IRInt(1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want an array")
	})
}

func TestInSubquery(t *testing.T) {
	ux := f.Column("u", "x", false, intType)
	uy := f.Column("u", "y", true, intType)
	from := []queryir.TableSource{&queryir.Table{Name: "u", Alias: "u"}}

	selectOf := func(e queryir.Expression) *queryir.Select {
		return &queryir.Select{
			Projection: []queryir.Projection{{Expr: e}},
			Tables:     from,
			Predicate:  f.Equal(ux, intConst(1)),
		}
	}

	t.Run("neither side nullable", func(t *testing.T) {
		input := f.InSubquery(b, selectOf(ux), false)
		requireTree(t, input, normalizedValue(t, input))
	})

	t.Run("nullable item", func(t *testing.T) {
		in := f.InSubquery(a, selectOf(ux), false)
		requireTree(t, in, normalizedPredicate(t, in))
		requireTree(t, f.And(in, f.IsNotNull(a)), normalizedValue(t, in))

		notIn := f.InSubquery(a, selectOf(ux), true)
		requireTree(t, f.Or(notIn, f.IsNull(a)), normalizedPredicate(t, notIn))
	})

	t.Run("nullable projection becomes exists", func(t *testing.T) {
		match := f.Or(f.Equal(uy, a), f.And(f.IsNull(uy), f.IsNull(a)))
		correlated := &queryir.Select{
			Tables:    from,
			Predicate: f.And(f.Equal(ux, intConst(1)), match),
		}

		requireTree(t, f.Exists(correlated, false), normalizedValue(t, f.InSubquery(a, selectOf(uy), false)))
		requireTree(t, f.Exists(correlated, true), normalizedValue(t, f.InSubquery(a, selectOf(uy), true)))
	})

	t.Run("limited subquery is matched as a derived table", func(t *testing.T) {
		sub := selectOf(uy)
		sub.Limit = intConst(5)
		sub.Orderings = []queryir.Ordering{{Expr: ux, Ascending: true}}

		derived := &queryir.Select{
			Projection: []queryir.Projection{{Expr: uy, Alias: "value"}},
			Tables:     from,
			Predicate:  f.Equal(ux, intConst(1)),
			Orderings:  sub.Orderings,
			Limit:      sub.Limit,
			Alias:      "s",
		}
		value := f.Column("s", "value", true, intType)
		correlated := &queryir.Select{
			Tables:    []queryir.TableSource{derived},
			Predicate: f.Or(f.Equal(value, a), f.And(f.IsNull(value), f.IsNull(a))),
		}

		requireTree(t, f.Exists(correlated, false), normalizedPredicate(t, f.InSubquery(a, sub, false)))
		requireTree(t, f.Exists(correlated, true), normalizedPredicate(t, f.InSubquery(a, sub, true)))
	})

	t.Run("grouped subquery alias avoids the item's tables", func(t *testing.T) {
		sub := selectOf(uy)
		sub.GroupBy = []queryir.Expression{uy}
		sItem := f.Column("s", "a", true, intType)

		got := normalizedPredicate(t, f.InSubquery(sItem, sub, true))
		exists, ok := got.(*queryir.Exists)
		require.True(t, ok, render(got))
		assert.True(t, exists.Negated)
		derived, ok := exists.Subquery.Tables[0].(*queryir.Select)
		require.True(t, ok)
		assert.Equal(t, "s0", derived.Alias)
		assert.Equal(t, []queryir.Expression{uy}, derived.GroupBy)
	})

	t.Run("ordering without paging is dropped", func(t *testing.T) {
		sub := selectOf(uy)
		sub.Orderings = []queryir.Ordering{{Expr: ux, Ascending: true}}

		match := f.Or(f.Equal(uy, a), f.And(f.IsNull(uy), f.IsNull(a)))
		correlated := &queryir.Select{
			Tables:    from,
			Predicate: f.And(f.Equal(ux, intConst(1)), match),
		}
		requireTree(t, f.Exists(correlated, true), normalizedPredicate(t, f.InSubquery(a, sub, true)))
	})

	t.Run("false subquery predicate", func(t *testing.T) {
		sub := selectOf(uy)
		sub.Predicate = f.False()
		requireTree(t, f.False(), normalizedPredicate(t, f.InSubquery(a, sub, false)))
	})

	t.Run("relational nulls keep the subquery", func(t *testing.T) {
		input := f.InSubquery(a, selectOf(uy), true)
		requireTree(t, input, normalizedValue(t, input, WithRelationalNulls(true)))
	})
}
