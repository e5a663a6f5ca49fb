package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/typemap"
)

var (
	intType  = typemap.New("int", typemap.KindInt)
	boolType = typemap.New("boolean", typemap.KindBool)
)

func col(table, name string, nullable bool) *Column {
	return &Column{Table: table, Name: name, Nullable: nullable, Mapping: intType}
}

func selectFrom(tables ...TableSource) *Select {
	return &Select{Tables: tables}
}

func TestValidate_SimpleSelect(t *testing.T) {
	f := DefaultFactory()
	// SELECT o.id FROM orders AS o WHERE o.qty = 1
	s := selectFrom(&Table{Name: "orders", Alias: "o"})
	s.Projection = []Projection{{Expr: col("o", "id", false)}}
	s.Predicate = f.Equal(col("o", "qty", true), f.Constant(ir.IRInt(1), nil))

	result := Validate(s)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
}

func TestValidate_DuplicateProjectionName(t *testing.T) {
	s := selectFrom(&Table{Name: "orders", Alias: "o"})
	s.Projection = []Projection{
		{Expr: col("o", "id", false)},
		{Expr: col("o", "qty", false), Alias: "id"},
	}

	result := Validate(s)

	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "select.projection[1]")
	assert.Contains(t, result.Issues[0], `duplicate projection name "id"`)
}

func TestValidate_InSources(t *testing.T) {
	f := DefaultFactory()
	item := col("o", "id", false)
	sub := selectFrom(&Table{Name: "items", Alias: "i"})
	sub.Projection = []Projection{{Expr: col("i", "order_id", false)}}

	tests := []struct {
		name   string
		in     *In
		issues int
	}{
		{"values", f.InValues(item, []Expression{f.Constant(ir.IRInt(1), nil)}, false), 0},
		{"empty values", f.InValues(item, []Expression{}, false), 0},
		{"parameter", f.InParameter(item, f.Parameter("ids", intType), false), 0},
		{"subquery", f.InSubquery(item, sub, false), 0},
		{"no source", &In{Item: item, Mapping: boolType}, 1},
		{"two sources", &In{Item: item, Values: []Expression{}, Subquery: sub, Mapping: boolType}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := selectFrom(&Table{Name: "orders", Alias: "o"})
			s.Predicate = tt.in

			result := Validate(s)

			assert.Len(t, result.Issues, tt.issues, "issues: %v", result.Issues)
		})
	}
}

func TestValidate_InSubqueryMustProjectOneColumn(t *testing.T) {
	f := DefaultFactory()
	sub := selectFrom(&Table{Name: "items", Alias: "i"})
	sub.Projection = []Projection{
		{Expr: col("i", "order_id", false)},
		{Expr: col("i", "qty", false)},
	}
	s := selectFrom(&Table{Name: "orders", Alias: "o"})
	s.Predicate = f.InSubquery(col("o", "id", false), sub, false)

	result := Validate(s)

	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "exactly one column")
}

func TestValidate_RowValueArity(t *testing.T) {
	f := DefaultFactory()
	left := &RowValue{Values: []Expression{col("o", "a", false), col("o", "b", false)}}
	right := &RowValue{Values: []Expression{f.Constant(ir.IRInt(1), nil)}}
	s := selectFrom(&Table{Name: "orders", Alias: "o"})
	s.Predicate = f.Equal(left, right)

	result := Validate(s)

	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "arity mismatch: 2 vs 1")
}

func TestValidate_ValuesRowArity(t *testing.T) {
	f := DefaultFactory()
	values := &Values{
		ColumnNames: []string{"a", "b"},
		Rows: []*RowValue{
			{Values: []Expression{f.Constant(ir.IRInt(1), nil), f.Constant(ir.IRInt(2), nil)}},
			{Values: []Expression{f.Constant(ir.IRInt(3), nil)}},
		},
		Alias: "v",
	}

	result := Validate(selectFrom(values))

	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "select.tables[0].rows[1]")
	assert.Contains(t, result.Issues[0], "row has 1 values, want 2")
}

func TestValidate_JoinReferencesLaterTable(t *testing.T) {
	f := DefaultFactory()
	s := selectFrom(
		&Table{Name: "orders", Alias: "o"},
		&Join{Kind: JoinInner, Table: &Table{Name: "items", Alias: "i"},
			Predicate: f.Equal(col("i", "order_id", false), col("c", "id", false))},
		&Join{Kind: JoinLeft, Table: &Table{Name: "customers", Alias: "c"},
			Predicate: f.Equal(col("c", "id", false), col("o", "customer_id", true))},
	)

	result := Validate(s)

	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "select.tables[1].on")
	assert.Contains(t, result.Issues[0], "c.id references a later table source")
}

func TestValidate_JoinPredicatePresence(t *testing.T) {
	f := DefaultFactory()
	tests := []struct {
		name string
		join *Join
		want string
	}{
		{"inner without predicate", &Join{Kind: JoinInner, Table: &Table{Name: "t", Alias: "t"}},
			"INNER JOIN requires a predicate"},
		{"cross with predicate", &Join{Kind: JoinCross, Table: &Table{Name: "t", Alias: "t"}, Predicate: f.True()},
			"CROSS JOIN cannot have a predicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(selectFrom(&Table{Name: "o", Alias: "o"}, tt.join))

			require.Len(t, result.Issues, 1)
			assert.Contains(t, result.Issues[0], tt.want)
		})
	}
}

func TestValidate_MissingTypeMapping(t *testing.T) {
	f := DefaultFactory()
	s := selectFrom(&Table{Name: "orders", Alias: "o"})
	s.Predicate = f.And(
		&Column{Table: "o", Name: "flag", Nullable: true},
		f.IsNotNull(&Parameter{Name: "p"}),
	)

	result := Validate(s)

	require.Len(t, result.Issues, 2)
	assert.Contains(t, result.Issues[0], "Column(o.flag) has no type mapping")
	assert.Contains(t, result.Issues[1], "Parameter(p) has no type mapping")
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	del := &Delete{}

	result := Validate(del)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"delete: target table is required",
		"delete: underlying select is required",
	}, result.Issues)
}

func TestValidate_NilStatement(t *testing.T) {
	result := Validate(nil)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"statement: nil statement"}, result.Issues)
}

func TestValidate_UpdateSetters(t *testing.T) {
	f := DefaultFactory()
	target := &Table{Name: "orders", Alias: "o"}
	upd := &Update{
		Table:   target,
		Setters: []ColumnSetter{{Column: col("o", "qty", true), Value: f.Constant(ir.IRInt(0), nil)}},
		Select:  selectFrom(target),
	}

	assert.True(t, Validate(upd).Valid)

	upd.Setters = nil
	result := Validate(upd)
	assert.Equal(t, []string{"update: at least one setter is required"}, result.Issues)
}
