package queryir

import "github.com/roach88/relq/internal/ir"

// Equal reports whether two expressions are structurally identical: same
// variants, same operators, equal values and equal type mappings.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}

	switch x := a.(type) {
	case *Column:
		y, ok := b.(*Column)
		return ok && x.Table == y.Table && x.Name == y.Name && x.Nullable == y.Nullable &&
			x.Mapping.Equal(y.Mapping)
	case *Constant:
		y, ok := b.(*Constant)
		return ok && valuesEqual(x.Value, y.Value) && x.Mapping.Equal(y.Mapping)
	case *Parameter:
		y, ok := b.(*Parameter)
		return ok && x.Name == y.Name && x.Mapping.Equal(y.Mapping)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand) && x.Mapping.Equal(y.Mapping)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right) &&
			x.Mapping.Equal(y.Mapping)
	case *Case:
		y, ok := b.(*Case)
		if !ok || len(x.Whens) != len(y.Whens) || !Equal(x.Operand, y.Operand) || !Equal(x.Else, y.Else) {
			return false
		}
		for i := range x.Whens {
			if !Equal(x.Whens[i].Test, y.Whens[i].Test) || !Equal(x.Whens[i].Result, y.Whens[i].Result) {
				return false
			}
		}
		return x.Mapping.Equal(y.Mapping)
	case *Like:
		y, ok := b.(*Like)
		return ok && Equal(x.Match, y.Match) && Equal(x.Pattern, y.Pattern) && Equal(x.Escape, y.Escape)
	case *In:
		y, ok := b.(*In)
		if !ok || x.Negated != y.Negated || !Equal(x.Item, y.Item) || !exprsEqual(x.Values, y.Values) {
			return false
		}
		if (x.ValuesParameter == nil) != (y.ValuesParameter == nil) ||
			(x.ValuesParameter != nil && !Equal(x.ValuesParameter, y.ValuesParameter)) {
			return false
		}
		return SelectsEqual(x.Subquery, y.Subquery)
	case *Exists:
		y, ok := b.(*Exists)
		return ok && x.Negated == y.Negated && SelectsEqual(x.Subquery, y.Subquery)
	case *Distinct:
		y, ok := b.(*Distinct)
		return ok && Equal(x.Operand, y.Operand)
	case *Collate:
		y, ok := b.(*Collate)
		return ok && x.Collation == y.Collation && Equal(x.Operand, y.Operand)
	case *RowNumber:
		y, ok := b.(*RowNumber)
		return ok && exprsEqual(x.Partitions, y.Partitions) && orderingsEqual(x.Orderings, y.Orderings)
	case *RowValue:
		y, ok := b.(*RowValue)
		return ok && exprsEqual(x.Values, y.Values)
	case *ScalarSubquery:
		y, ok := b.(*ScalarSubquery)
		return ok && SelectsEqual(x.Subquery, y.Subquery)
	case *Function:
		y, ok := b.(*Function)
		if !ok || x.Schema != y.Schema || x.Name != y.Name || x.Nullable != y.Nullable ||
			x.Niladic != y.Niladic || x.BuiltIn != y.BuiltIn || x.InstancePropagatesNull != y.InstancePropagatesNull {
			return false
		}
		if len(x.ArgsPropagateNull) != len(y.ArgsPropagateNull) {
			return false
		}
		for i := range x.ArgsPropagateNull {
			if x.ArgsPropagateNull[i] != y.ArgsPropagateNull[i] {
				return false
			}
		}
		return Equal(x.Instance, y.Instance) && exprsEqual(x.Args, y.Args) && x.Mapping.Equal(y.Mapping)
	case *Fragment:
		y, ok := b.(*Fragment)
		return ok && x.SQL == y.SQL
	}
	return false
}

// SelectsEqual reports whether two selects are structurally identical.
func SelectsEqual(a, b *Select) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Distinct != b.Distinct || a.Alias != b.Alias || len(a.Projection) != len(b.Projection) ||
		len(a.Tables) != len(b.Tables) {
		return false
	}
	for i := range a.Projection {
		if a.Projection[i].Alias != b.Projection[i].Alias || !Equal(a.Projection[i].Expr, b.Projection[i].Expr) {
			return false
		}
	}
	for i := range a.Tables {
		if !TablesEqual(a.Tables[i], b.Tables[i]) {
			return false
		}
	}
	return Equal(a.Predicate, b.Predicate) && exprsEqual(a.GroupBy, b.GroupBy) && Equal(a.Having, b.Having) &&
		orderingsEqual(a.Orderings, b.Orderings) && Equal(a.Limit, b.Limit) && Equal(a.Offset, b.Offset)
}

// TablesEqual reports whether two table sources are structurally identical.
func TablesEqual(a, b TableSource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Table:
		y, ok := b.(*Table)
		return ok && *x == *y
	case *FromSQL:
		y, ok := b.(*FromSQL)
		return ok && x.SQL == y.SQL && x.Alias == y.Alias && exprsEqual(x.Args, y.Args)
	case *TableValuedFunction:
		y, ok := b.(*TableValuedFunction)
		return ok && x.Schema == y.Schema && x.Name == y.Name && x.Alias == y.Alias && exprsEqual(x.Args, y.Args)
	case *Values:
		y, ok := b.(*Values)
		if !ok || x.Alias != y.Alias || len(x.ColumnNames) != len(y.ColumnNames) || len(x.Rows) != len(y.Rows) {
			return false
		}
		for i := range x.ColumnNames {
			if x.ColumnNames[i] != y.ColumnNames[i] {
				return false
			}
		}
		for i := range x.Rows {
			if !Equal(x.Rows[i], y.Rows[i]) {
				return false
			}
		}
		return true
	case *Join:
		y, ok := b.(*Join)
		return ok && x.Kind == y.Kind && TablesEqual(x.Table, y.Table) && Equal(x.Predicate, y.Predicate)
	case *Select:
		y, ok := b.(*Select)
		return ok && SelectsEqual(x, y)
	case *SetOperation:
		y, ok := b.(*SetOperation)
		return ok && x.Kind == y.Kind && x.Distinct == y.Distinct && x.Alias == y.Alias &&
			SelectsEqual(x.Left, y.Left) && SelectsEqual(x.Right, y.Right)
	}
	return false
}

func exprsEqual(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func orderingsEqual(a, b []Ordering) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ascending != b[i].Ascending || !Equal(a[i].Expr, b[i].Expr) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b ir.IRValue) bool {
	if ir.IsNull(a) || ir.IsNull(b) {
		return ir.IsNull(a) && ir.IsNull(b)
	}
	switch x := a.(type) {
	case ir.IRDecimal:
		y, ok := b.(ir.IRDecimal)
		return ok && x.Equal(y)
	case ir.IRArray:
		y, ok := b.(ir.IRArray)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case ir.IRObject:
		y, ok := b.(ir.IRObject)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			if !valuesEqual(v, y[k]) {
				return false
			}
		}
		return true
	}
	return a == b
}
