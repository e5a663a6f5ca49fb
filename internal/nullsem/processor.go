package nullsem

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

// processor carries the scratch state of one Normalize call. The non-null
// column scope is threaded through the recursion as an immutable colSet, so
// the processor itself only accumulates the cache flag, synthesized
// parameters and the first error.
type processor struct {
	n           *Normalizer
	f           *queryir.Factory
	params      Parameters
	synthesized Parameters
	cacheable   bool
	err         error
}

// Visit implements Visitor. Extensions see an empty non-null scope.
func (p *processor) Visit(e queryir.Expression, optimize bool) (queryir.Expression, bool) {
	return p.visit(e, optimize, colSet{})
}

func (p *processor) Factory() *queryir.Factory { return p.f }

func (p *processor) Fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *processor) doNotCache() { p.cacheable = false }

// paramIsNull reports whether a parameter, supplied or synthesized, is null.
func (p *processor) paramIsNull(name string) bool {
	if v, ok := p.synthesized[name]; ok {
		return ir.IsNull(v)
	}
	return p.params.IsNull(name)
}

func (p *processor) statement(stmt queryir.Statement) queryir.Statement {
	switch s := stmt.(type) {
	case *queryir.Select:
		return p.selectStmt(s)

	case *queryir.Update:
		setters, changed := mapSlice(s.Setters, func(st queryir.ColumnSetter) queryir.ColumnSetter {
			v, _ := p.visit(st.Value, false, colSet{})
			return queryir.ColumnSetter{Column: st.Column, Value: v}
		}, func(a, b queryir.ColumnSetter) bool { return a == b })
		sel := p.selectStmt(s.Select)
		if sel == s.Select && !changed {
			return s
		}
		return &queryir.Update{Table: s.Table, Setters: setters, Select: sel}

	case *queryir.Delete:
		sel := p.selectStmt(s.Select)
		if sel == s.Select {
			return s
		}
		return &queryir.Delete{Table: s.Table, Select: sel}
	}

	p.Fail(sqlerr.NewUnhandledNode("normalizer", queryir.Describe(stmt)))
	return stmt
}

// selectStmt normalizes every clause of s. WHERE and HAVING are boolean
// contexts where unknown reads as false; projections, grouping keys,
// orderings and paging are value contexts.
func (p *processor) selectStmt(s *queryir.Select) *queryir.Select {
	if s == nil {
		return nil
	}

	out := s.Clone()
	changed := false

	projection, ch := mapSlice(s.Projection, func(pr queryir.Projection) queryir.Projection {
		e, _ := p.visit(pr.Expr, false, colSet{})
		if e == pr.Expr {
			return pr
		}
		return queryir.Projection{Expr: e, Alias: pr.Alias}
	}, func(a, b queryir.Projection) bool { return a == b })
	out.Projection = projection
	changed = changed || ch

	tables, ch := mapSlice(s.Tables, p.table, func(a, b queryir.TableSource) bool { return a == b })
	out.Tables = tables
	changed = changed || ch

	out.Predicate = p.clause(s.Predicate)
	changed = changed || out.Predicate != s.Predicate

	groupBy, ch := mapSlice(s.GroupBy, func(g queryir.Expression) queryir.Expression {
		e, _ := p.visit(g, false, colSet{})
		return e
	}, func(a, b queryir.Expression) bool { return a == b })
	out.GroupBy = groupBy
	changed = changed || ch

	out.Having = p.clause(s.Having)
	changed = changed || out.Having != s.Having

	orderings, ch := mapSlice(s.Orderings, func(o queryir.Ordering) queryir.Ordering {
		e, _ := p.visit(o.Expr, false, colSet{})
		if e == o.Expr {
			return o
		}
		return queryir.Ordering{Expr: e, Ascending: o.Ascending}
	}, func(a, b queryir.Ordering) bool { return a == b })
	out.Orderings = orderings
	changed = changed || ch

	if s.Limit != nil {
		out.Limit, _ = p.visit(s.Limit, false, colSet{})
		changed = changed || out.Limit != s.Limit
	}
	if s.Offset != nil {
		out.Offset, _ = p.visit(s.Offset, false, colSet{})
		changed = changed || out.Offset != s.Offset
	}

	if !changed {
		return s
	}
	return out
}

// clause normalizes a WHERE or HAVING predicate. A predicate that folds to
// TRUE is dropped.
func (p *processor) clause(pred queryir.Expression) queryir.Expression {
	if pred == nil {
		return nil
	}
	out, _ := p.visit(pred, true, colSet{})
	if v, ok := boolConstant(out); ok && v {
		return nil
	}
	return out
}

func (p *processor) table(t queryir.TableSource) queryir.TableSource {
	switch x := t.(type) {
	case *queryir.Table, *queryir.FromSQL:
		return t

	case *queryir.TableValuedFunction:
		args, _ := p.visitAll(x.Args, colSet{})
		return x.Update(args)

	case *queryir.Values:
		rows, _ := mapSlice(x.Rows, func(r *queryir.RowValue) *queryir.RowValue {
			values, _ := p.visitAll(r.Values, colSet{})
			return r.Update(values)
		}, func(a, b *queryir.RowValue) bool { return a == b })
		return x.Update(rows)

	case *queryir.Join:
		inner := p.table(x.Table)
		if !x.Kind.HasPredicate() || x.Predicate == nil {
			return x.Update(inner, x.Predicate)
		}
		pred := p.joinPredicate(x.Predicate)
		if v, ok := boolConstant(pred); ok && v && x.Kind == queryir.JoinInner {
			return &queryir.Join{Kind: queryir.JoinCross, Table: inner}
		}
		return x.Update(inner, pred)

	case *queryir.Select:
		return p.selectStmt(x)

	case *queryir.SetOperation:
		return x.Update(p.selectStmt(x.Left), p.selectStmt(x.Right))
	}

	p.Fail(sqlerr.NewUnhandledNode("normalizer", queryir.Describe(t)))
	return t
}

// joinPredicate normalizes an ON clause. A top-level key equality only gets
// the structural comparison optimizations: join keys that are both null do
// not match.
func (p *processor) joinPredicate(pred queryir.Expression) queryir.Expression {
	if b, ok := pred.(*queryir.Binary); ok && b.Op == queryir.OpEqual {
		if b.Mapping == nil {
			p.Fail(sqlerr.NewMissingTypeMapping(queryir.Describe(b)))
			return pred
		}
		left, leftNullable := p.visit(b.Left, true, colSet{})
		right, rightNullable := p.visit(b.Right, true, colSet{})
		out, _ := p.optimizeComparison(b.Update(left, right), leftNullable, rightNullable, colSet{}, false)
		return out
	}
	out, _ := p.visit(pred, true, colSet{})
	return out
}

// mapSlice applies fn to every element, returning the input slice itself
// when no element changed.
func mapSlice[T any](in []T, fn func(T) T, same func(a, b T) bool) ([]T, bool) {
	var out []T
	for i, item := range in {
		v := fn(item)
		if out == nil && !same(v, item) {
			out = make([]T, len(in))
			copy(out, in[:i])
		}
		if out != nil {
			out[i] = v
		}
	}
	if out == nil {
		return in, false
	}
	return out, true
}

// assertf records an internal invariant violation.
func (p *processor) assertf(format string, args ...any) {
	p.Fail(errors.AssertionFailedf(format, args...))
}
