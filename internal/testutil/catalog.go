package testutil

import "github.com/roach88/relq/internal/ir"

// Col is a non-nullable column.
func Col(name, typ string) ir.ColumnSpec {
	return ir.ColumnSpec{Name: name, Type: typ}
}

// NullCol is a nullable column.
func NullCol(name, typ string) ir.ColumnSpec {
	return ir.ColumnSpec{Name: name, Type: typ, Nullable: true}
}

// Table builds a table spec in the default schema.
func Table(name string, cols ...ir.ColumnSpec) ir.TableSpec {
	return ir.TableSpec{Name: name, Columns: cols}
}

// Catalog builds a catalog from tables, keeping their order.
func Catalog(tables ...ir.TableSpec) *ir.Catalog {
	return &ir.Catalog{Tables: tables}
}

// Values converts Go values with ir.FromGo and panics on failure. Meant for
// test literals only.
func Values(vals ...any) []ir.IRValue {
	out := make([]ir.IRValue, len(vals))
	for i, v := range vals {
		irv, err := ir.FromGo(v)
		if err != nil {
			panic(err)
		}
		out[i] = irv
	}
	return out
}
