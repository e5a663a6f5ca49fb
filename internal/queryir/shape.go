package queryir

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/typemap"
)

// Shape encodes a statement as an ir.IRValue tree suitable for canonical
// hashing. Parameters contribute their names and mappings, never their
// values, so two executions of the same statement share one shape.
func Shape(stmt Statement) (ir.IRValue, error) {
	var e shapeEncoder
	v := e.statement(stmt)
	if e.err != nil {
		return nil, e.err
	}
	return v, nil
}

// ShapeHash returns the domain-separated hash of a statement's shape.
func ShapeHash(stmt Statement) (string, error) {
	shape, err := Shape(stmt)
	if err != nil {
		return "", err
	}
	return ir.ShapeHash(shape)
}

type shapeEncoder struct {
	err error
}

func (e *shapeEncoder) fail(node any) ir.IRValue {
	if e.err == nil {
		e.err = errors.Newf("cannot encode shape of %s", Describe(node))
	}
	return ir.IRNull{}
}

func node(kind string, pairs ...ir.IRPair) ir.IRObject {
	obj := ir.NewIRObjectFromPairs(pairs...)
	obj["k"] = ir.IRString(kind)
	return obj
}

func mappingShape(m *typemap.TypeMapping) ir.IRValue {
	if m == nil {
		return ir.IRNull{}
	}
	return ir.IRString(m.String())
}

func (e *shapeEncoder) statement(stmt Statement) ir.IRValue {
	switch s := stmt.(type) {
	case *Select:
		return e.selectShape(s)
	case *Update:
		setters := make(ir.IRArray, len(s.Setters))
		for i, st := range s.Setters {
			setters[i] = ir.NewIRArray(e.expr(st.Column), e.expr(st.Value))
		}
		return node("update",
			ir.O("table", e.table(s.Table)),
			ir.O("set", setters),
			ir.O("select", e.selectShape(s.Select)))
	case *Delete:
		return node("delete",
			ir.O("table", e.table(s.Table)),
			ir.O("select", e.selectShape(s.Select)))
	}
	return e.fail(stmt)
}

func (e *shapeEncoder) selectShape(s *Select) ir.IRValue {
	if s == nil {
		return ir.IRNull{}
	}
	proj := make(ir.IRArray, len(s.Projection))
	for i, p := range s.Projection {
		proj[i] = ir.NewIRArray(e.expr(p.Expr), ir.IRString(p.Alias))
	}
	tables := make(ir.IRArray, len(s.Tables))
	for i, t := range s.Tables {
		tables[i] = e.table(t)
	}
	return node("select",
		ir.O("distinct", ir.IRBool(s.Distinct)),
		ir.O("projection", proj),
		ir.O("tables", tables),
		ir.O("where", e.optional(s.Predicate)),
		ir.O("group", e.exprs(s.GroupBy)),
		ir.O("having", e.optional(s.Having)),
		ir.O("order", e.orderings(s.Orderings)),
		ir.O("limit", e.optional(s.Limit)),
		ir.O("offset", e.optional(s.Offset)),
		ir.O("alias", ir.IRString(s.Alias)))
}

func (e *shapeEncoder) table(t TableSource) ir.IRValue {
	switch x := t.(type) {
	case *Table:
		return node("table", ir.O("schema", ir.IRString(x.Schema)), ir.O("name", ir.IRString(x.Name)),
			ir.O("alias", ir.IRString(x.Alias)))
	case *FromSQL:
		return node("fromsql", ir.O("sql", ir.IRString(x.SQL)), ir.O("args", e.exprs(x.Args)),
			ir.O("alias", ir.IRString(x.Alias)))
	case *TableValuedFunction:
		return node("tvf", ir.O("schema", ir.IRString(x.Schema)), ir.O("name", ir.IRString(x.Name)),
			ir.O("args", e.exprs(x.Args)), ir.O("alias", ir.IRString(x.Alias)))
	case *Values:
		cols := make(ir.IRArray, len(x.ColumnNames))
		for i, c := range x.ColumnNames {
			cols[i] = ir.IRString(c)
		}
		rows := make(ir.IRArray, len(x.Rows))
		for i, r := range x.Rows {
			rows[i] = e.expr(r)
		}
		return node("values", ir.O("columns", cols), ir.O("rows", rows), ir.O("alias", ir.IRString(x.Alias)))
	case *Join:
		return node("join", ir.O("kind", ir.IRString(x.Kind.String())), ir.O("table", e.table(x.Table)),
			ir.O("on", e.optional(x.Predicate)))
	case *Select:
		return e.selectShape(x)
	case *SetOperation:
		return node("setop", ir.O("op", ir.IRString(x.Kind.String())), ir.O("distinct", ir.IRBool(x.Distinct)),
			ir.O("left", e.selectShape(x.Left)), ir.O("right", e.selectShape(x.Right)),
			ir.O("alias", ir.IRString(x.Alias)))
	}
	return e.fail(t)
}

func (e *shapeEncoder) optional(x Expression) ir.IRValue {
	if x == nil {
		return ir.IRNull{}
	}
	return e.expr(x)
}

func (e *shapeEncoder) exprs(xs []Expression) ir.IRArray {
	out := make(ir.IRArray, len(xs))
	for i, x := range xs {
		out[i] = e.expr(x)
	}
	return out
}

func (e *shapeEncoder) orderings(os []Ordering) ir.IRArray {
	out := make(ir.IRArray, len(os))
	for i, o := range os {
		out[i] = ir.NewIRArray(e.expr(o.Expr), ir.IRBool(o.Ascending))
	}
	return out
}

func (e *shapeEncoder) expr(x Expression) ir.IRValue {
	switch n := x.(type) {
	case *Column:
		return node("col", ir.O("t", ir.IRString(n.Table)), ir.O("n", ir.IRString(n.Name)),
			ir.O("null", ir.IRBool(n.Nullable)), ir.O("m", mappingShape(n.Mapping)))
	case *Constant:
		v := n.Value
		if v == nil {
			v = ir.IRNull{}
		}
		return node("const", ir.O("v", v), ir.O("m", mappingShape(n.Mapping)))
	case *Parameter:
		return node("param", ir.O("n", ir.IRString(n.Name)), ir.O("m", mappingShape(n.Mapping)))
	case *Unary:
		return node("unary", ir.O("op", ir.IRString(n.Op.String())), ir.O("x", e.expr(n.Operand)),
			ir.O("m", mappingShape(n.Mapping)))
	case *Binary:
		return node("binary", ir.O("op", ir.IRString(n.Op.String())), ir.O("l", e.expr(n.Left)),
			ir.O("r", e.expr(n.Right)), ir.O("m", mappingShape(n.Mapping)))
	case *Case:
		whens := make(ir.IRArray, len(n.Whens))
		for i, w := range n.Whens {
			whens[i] = ir.NewIRArray(e.expr(w.Test), e.expr(w.Result))
		}
		return node("case", ir.O("operand", e.optional(n.Operand)), ir.O("whens", whens),
			ir.O("else", e.optional(n.Else)), ir.O("m", mappingShape(n.Mapping)))
	case *Like:
		return node("like", ir.O("match", e.expr(n.Match)), ir.O("pattern", e.expr(n.Pattern)),
			ir.O("escape", e.optional(n.Escape)))
	case *In:
		var list ir.IRValue = ir.IRNull{}
		if n.ValuesParameter != nil {
			list = e.expr(n.ValuesParameter)
		}
		return node("in", ir.O("item", e.expr(n.Item)), ir.O("values", e.exprs(n.Values)),
			ir.O("list", list), ir.O("sub", e.selectShape(n.Subquery)), ir.O("not", ir.IRBool(n.Negated)))
	case *Exists:
		return node("exists", ir.O("sub", e.selectShape(n.Subquery)), ir.O("not", ir.IRBool(n.Negated)))
	case *Distinct:
		return node("distinct", ir.O("x", e.expr(n.Operand)))
	case *Collate:
		return node("collate", ir.O("x", e.expr(n.Operand)), ir.O("c", ir.IRString(n.Collation)))
	case *RowNumber:
		return node("rownumber", ir.O("partitions", e.exprs(n.Partitions)), ir.O("order", e.orderings(n.Orderings)))
	case *RowValue:
		return node("row", ir.O("values", e.exprs(n.Values)))
	case *ScalarSubquery:
		return node("scalar", ir.O("sub", e.selectShape(n.Subquery)), ir.O("m", mappingShape(n.Mapping)))
	case *Function:
		prop := make(ir.IRArray, len(n.ArgsPropagateNull))
		for i, p := range n.ArgsPropagateNull {
			prop[i] = ir.IRBool(p)
		}
		return node("fn", ir.O("schema", ir.IRString(n.Schema)), ir.O("n", ir.IRString(n.Name)),
			ir.O("instance", e.optional(n.Instance)), ir.O("args", e.exprs(n.Args)),
			ir.O("propagate", prop), ir.O("nullable", ir.IRBool(n.Nullable)),
			ir.O("niladic", ir.IRBool(n.Niladic)), ir.O("m", mappingShape(n.Mapping)))
	case *Fragment:
		return node("fragment", ir.O("sql", ir.IRString(n.SQL)))
	}
	return e.fail(x)
}
